package questions

import (
	"encoding/json"
	"os"
)

// Question は静的な問題データの1件です。
type Question struct {
	QuestionID string   `json:"question_id"`
	Question   string   `json:"question"`
	Options    []string `json:"options"`
	Answer     string   `json:"answer"`
	Points     int      `json:"points"`
}

// Store は起動時に読み込んだ問題のIDルックアップです。
// 読み込み後は変更しないため、ロックなしで並行アクセスできます。
type Store struct {
	byID map[string]Question
}

// Load は問題ファイル（JSON配列）を読み込みます。
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var list []Question
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}

	byID := make(map[string]Question, len(list))
	for _, q := range list {
		byID[q.QuestionID] = q
	}
	return &Store{byID: byID}, nil
}

// Get は問題をIDで検索します。
func (s *Store) Get(id string) (Question, bool) {
	q, ok := s.byID[id]
	return q, ok
}

// Len は読み込んだ問題数を返します。
func (s *Store) Len() int {
	return len(s.byID)
}
