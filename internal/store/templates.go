package store

import "github.com/hitoshi/crmdesk/internal/model"

// メールテンプレートはローカル専用のコレクション。
// リモートAPIは持たず、すべての操作が即時・ライトスルーで完結する。

// SetTemplates はテンプレートコレクションを丸ごと置き換えて永続化する。
func (s *Store) SetTemplates(templates []model.EmailTemplate) {
	s.mutate(func() {
		s.templates = append([]model.EmailTemplate(nil), templates...)
		s.cache.SaveTemplates(s.templates)
	})
}

// CreateTemplate は入力から新しいテンプレートを作成して追加・永続化する。
// IDは現在時刻由来、CreatedAtは現在時刻のRFC 3339文字列を割り当てる。
func (s *Store) CreateTemplate(input model.EmailTemplateInput) model.EmailTemplate {
	template := model.EmailTemplate{
		ID:        LocalID(),
		Name:      input.Name,
		Subject:   input.Subject,
		Body:      input.Body,
		CreatedAt: Now(),
	}
	s.mutate(func() {
		s.templates = append(s.templates, template)
		s.cache.SaveTemplates(s.templates)
	})
	return template
}

// AddTemplate は既成のテンプレートを末尾に追加して永続化する。
func (s *Store) AddTemplate(template model.EmailTemplate) {
	s.mutate(func() {
		s.templates = append(s.templates, template)
		s.cache.SaveTemplates(s.templates)
	})
}

// UpdateTemplateLocal はIDが一致するテンプレートを置き換えて永続化する。
// 一致しない場合は何もしない。
func (s *Store) UpdateTemplateLocal(template model.EmailTemplate) {
	s.mutate(func() {
		for i := range s.templates {
			if s.templates[i].ID == template.ID {
				s.templates[i] = template
				s.cache.SaveTemplates(s.templates)
				return
			}
		}
	})
}

// RemoveTemplate はIDが一致するテンプレートを取り除き、永続化する。
func (s *Store) RemoveTemplate(id string) {
	s.mutate(func() {
		filtered := s.templates[:0:0]
		for _, tpl := range s.templates {
			if tpl.ID != id {
				filtered = append(filtered, tpl)
			}
		}
		s.templates = filtered
		s.cache.SaveTemplates(s.templates)
	})
}
