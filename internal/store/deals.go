package store

import (
	"context"
	"log/slog"

	"github.com/hitoshi/crmdesk/internal/model"
)

// SetDeals は商談コレクションを丸ごと置き換えて永続化する。
func (s *Store) SetDeals(deals []model.Deal) {
	s.mutate(func() {
		s.deals = append([]model.Deal(nil), deals...)
		s.cache.SaveDeals(s.deals)
	})
}

// AddDeal は商談を末尾に追加して永続化する（挿入順保持）。
func (s *Store) AddDeal(deal model.Deal) {
	s.mutate(func() {
		s.deals = append(s.deals, deal)
		s.cache.SaveDeals(s.deals)
	})
}

// UpdateDealLocal はIDが一致する商談をその場で置き換えて永続化する。
// 一致しない場合は何もしない（エラーも記録しない）。
func (s *Store) UpdateDealLocal(deal model.Deal) {
	s.mutate(func() {
		s.replaceDealByID(deal)
	})
}

// RemoveDeal はIDが一致する商談を取り除き、永続化する。
// 一致する商談がなくても永続化は行う。
func (s *Store) RemoveDeal(id string) {
	s.mutate(func() {
		filtered := s.deals[:0:0]
		for _, d := range s.deals {
			if d.ID != id {
				filtered = append(filtered, d)
			}
		}
		s.deals = filtered
		s.cache.SaveDeals(s.deals)
	})
}

// ClearDealsError は商談コレクションのエラー表示をリセットする。
func (s *Store) ClearDealsError() {
	s.mutate(func() {
		s.dealsState.err = ""
	})
}

// replaceDealByID はIDが一致する商談を置き換え、一致時のみ永続化する。
func (s *Store) replaceDealByID(deal model.Deal) updateResult {
	for i := range s.deals {
		if s.deals[i].ID == deal.ID {
			s.deals[i] = deal
			s.cache.SaveDeals(s.deals)
			return updated
		}
	}
	return notFound
}

// FetchDeals は商談一覧をサーバーから取得してコレクションを置き換える。
func (s *Store) FetchDeals(ctx context.Context) error {
	s.beginDeals()

	deals, err := s.api.GetDeals(ctx)
	if err != nil {
		s.rejectDeals("Failed to fetch deals", err)
		return err
	}

	s.mutate(func() {
		s.dealsState.loading = false
		s.deals = deals
		s.cache.SaveDeals(s.deals)
	})
	return nil
}

// CreateDealRemote は商談をサーバーで作成し、確定したエンティティを追加する。
func (s *Store) CreateDealRemote(ctx context.Context, input model.DealInput) (*model.Deal, error) {
	s.beginDeals()

	created, err := s.api.CreateDeal(ctx, input)
	if err != nil {
		s.rejectDeals("Failed to create deal", err)
		return nil, err
	}

	s.mutate(func() {
		s.dealsState.loading = false
		s.deals = append(s.deals, *created)
		s.cache.SaveDeals(s.deals)
	})
	return created, nil
}

// UpdateDealRemote は商談をサーバーで更新し、確定したエンティティで置き換える。
func (s *Store) UpdateDealRemote(ctx context.Context, deal model.Deal) (*model.Deal, error) {
	s.beginDeals()

	updatedDeal, err := s.api.UpdateDeal(ctx, deal)
	if err != nil {
		s.rejectDeals("Failed to update deal", err)
		return nil, err
	}

	s.mutate(func() {
		s.dealsState.loading = false
		s.replaceDealByID(*updatedDeal)
	})
	return updatedDeal, nil
}

// DeleteDealRemote は商談をサーバーで削除し、コレクションから取り除く。
func (s *Store) DeleteDealRemote(ctx context.Context, id string) error {
	s.beginDeals()

	if err := s.api.DeleteDeal(ctx, id); err != nil {
		s.rejectDeals("Failed to delete deal", err)
		return err
	}

	s.mutate(func() {
		s.dealsState.loading = false
		filtered := s.deals[:0:0]
		for _, d := range s.deals {
			if d.ID != id {
				filtered = append(filtered, d)
			}
		}
		s.deals = filtered
		s.cache.SaveDeals(s.deals)
	})
	return nil
}

func (s *Store) beginDeals() {
	s.mutate(func() {
		s.dealsState.loading = true
		s.dealsState.err = ""
	})
}

func (s *Store) rejectDeals(fallback string, err error) {
	s.logger.Warn("remote deal operation failed", slog.String("error", err.Error()))
	s.mutate(func() {
		s.dealsState.loading = false
		s.dealsState.err = errorMessage(fallback, err)
	})
}
