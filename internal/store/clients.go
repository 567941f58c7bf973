package store

import (
	"context"
	"log/slog"

	"github.com/hitoshi/crmdesk/internal/model"
)

// --- ローカル（楽観的）操作 ---
// 即時にインメモリ状態を変更し、同期的にキャッシュへ書き込む。
// エラーを返さず、Errフィールドにも触れない。

// SetClients は顧客コレクションを丸ごと置き換えて永続化する。
func (s *Store) SetClients(clients []model.Client) {
	s.mutate(func() {
		s.clients = append([]model.Client(nil), clients...)
		s.cache.SaveClients(s.clients)
	})
}

// AddClient は顧客を末尾に追加して永続化する（挿入順保持）。
func (s *Store) AddClient(client model.Client) {
	s.mutate(func() {
		s.clients = append(s.clients, client)
		s.cache.SaveClients(s.clients)
	})
}

// UpdateClientLocal はIDが一致する顧客をその場で置き換えて永続化する。
// 一致しない場合は何もしない（エラーも記録しない）。
func (s *Store) UpdateClientLocal(client model.Client) {
	s.mutate(func() {
		s.replaceClientByID(client)
	})
}

// RemoveClient はIDが一致する顧客を取り除き、永続化する。
// 一致する顧客がなくても永続化は行う。
func (s *Store) RemoveClient(id string) {
	s.mutate(func() {
		filtered := s.clients[:0:0]
		for _, c := range s.clients {
			if c.ID != id {
				filtered = append(filtered, c)
			}
		}
		s.clients = filtered
		s.cache.SaveClients(s.clients)
	})
}

// ClearClientsError は顧客コレクションのエラー表示をリセットする。
func (s *Store) ClearClientsError() {
	s.mutate(func() {
		s.clientsState.err = ""
	})
}

// replaceClientByID はIDが一致する顧客を置き換え、一致時のみ永続化する。
// 一致なしは意図されたUI許容のためエラーとして表面化しない。
// ローカル更新とリモートfulfilledの両方がこのコミットを通る。
func (s *Store) replaceClientByID(client model.Client) updateResult {
	for i := range s.clients {
		if s.clients[i].ID == client.ID {
			s.clients[i] = client
			s.cache.SaveClients(s.clients)
			return updated
		}
	}
	return notFound
}

// --- リモート（非同期）操作 ---
// dispatch時にloading=true, err=""とし、ネットワーク呼び出し中はロックを
// 保持しない（この間に他の操作が割り込める）。成功時はコレクションを更新して
// 永続化し、失敗時はerrにメッセージを記録してItemsは変更しない。

// FetchClients は顧客一覧をサーバーから取得してコレクションを置き換える。
func (s *Store) FetchClients(ctx context.Context) error {
	s.beginClients()

	clients, err := s.api.GetClients(ctx)
	if err != nil {
		s.rejectClients("Failed to fetch clients", err)
		return err
	}

	s.mutate(func() {
		s.clientsState.loading = false
		s.clients = clients
		s.cache.SaveClients(s.clients)
	})
	return nil
}

// CreateClientRemote は顧客をサーバーで作成し、確定したエンティティを追加する。
// 先行する楽観的ローカル挿入との重複排除は行わない（後勝ち・共存）。
func (s *Store) CreateClientRemote(ctx context.Context, input model.ClientInput) (*model.Client, error) {
	s.beginClients()

	created, err := s.api.CreateClient(ctx, input)
	if err != nil {
		s.rejectClients("Failed to create client", err)
		return nil, err
	}

	s.mutate(func() {
		s.clientsState.loading = false
		s.clients = append(s.clients, *created)
		s.cache.SaveClients(s.clients)
	})
	return created, nil
}

// UpdateClientRemote は顧客をサーバーで更新し、確定したエンティティで置き換える。
func (s *Store) UpdateClientRemote(ctx context.Context, client model.Client) (*model.Client, error) {
	s.beginClients()

	updatedClient, err := s.api.UpdateClient(ctx, client)
	if err != nil {
		s.rejectClients("Failed to update client", err)
		return nil, err
	}

	s.mutate(func() {
		s.clientsState.loading = false
		s.replaceClientByID(*updatedClient)
	})
	return updatedClient, nil
}

// DeleteClientRemote は顧客をサーバーで削除し、コレクションから取り除く。
func (s *Store) DeleteClientRemote(ctx context.Context, id string) error {
	s.beginClients()

	if err := s.api.DeleteClient(ctx, id); err != nil {
		s.rejectClients("Failed to delete client", err)
		return err
	}

	s.mutate(func() {
		s.clientsState.loading = false
		filtered := s.clients[:0:0]
		for _, c := range s.clients {
			if c.ID != id {
				filtered = append(filtered, c)
			}
		}
		s.clients = filtered
		s.cache.SaveClients(s.clients)
	})
	return nil
}

// beginClients はリモート操作のpending遷移を適用する。
func (s *Store) beginClients() {
	s.mutate(func() {
		s.clientsState.loading = true
		s.clientsState.err = ""
	})
}

// rejectClients はリモート操作のrejected遷移を適用する。Itemsには触れない。
func (s *Store) rejectClients(fallback string, err error) {
	s.logger.Warn("remote client operation failed", slog.String("error", err.Error()))
	s.mutate(func() {
		s.clientsState.loading = false
		s.clientsState.err = errorMessage(fallback, err)
	})
}

// errorMessage はrejected時に記録するメッセージを決める。
func errorMessage(fallback string, err error) string {
	if err == nil || err.Error() == "" {
		return fallback
	}
	return err.Error()
}
