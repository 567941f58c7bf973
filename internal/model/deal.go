// Package model はドメインモデルを定義する。
package model

// Deal は商談を表す。
// ClientIDはClient.IDへのソフト参照であり、外部キーとしては強制しない。
// 参照先が存在しない商談も許容し、表示側で "Unknown" として扱う。
type Deal struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Value             float64   `json:"value"`
	Stage             DealStage `json:"stage"`
	ClientID          string    `json:"clientId"`
	ExpectedCloseDate string    `json:"expectedCloseDate"`
	CreatedAt         string    `json:"createdAt"`
}

// DealStage は商談のパイプラインステージを表す。
// ステージ間の遷移ルールは強制しない（任意のステージから任意のステージへ移動可能）。
type DealStage string

const (
	// DealStageLead はリード段階。
	DealStageLead DealStage = "lead"
	// DealStageQualification は検討段階。
	DealStageQualification DealStage = "qualification"
	// DealStageProposal は提案段階。
	DealStageProposal DealStage = "proposal"
	// DealStageNegotiation は交渉段階。
	DealStageNegotiation DealStage = "negotiation"
	// DealStageClosed は成約段階。
	DealStageClosed DealStage = "closed"
)

// DealStages は全パイプラインステージの一覧。
var DealStages = []DealStage{
	DealStageLead,
	DealStageQualification,
	DealStageProposal,
	DealStageNegotiation,
	DealStageClosed,
}

// DealInput は商談の作成・更新リクエストの入力。
type DealInput struct {
	Title             string    `json:"title"`
	Value             float64   `json:"value"`
	Stage             DealStage `json:"stage"`
	ClientID          string    `json:"clientId"`
	ExpectedCloseDate string    `json:"expectedCloseDate"`
}
