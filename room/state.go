package room

import (
	"errors"

	"quizserver/models"

	"gorm.io/gorm"
)

// RoomState はルームの現在のスナップショットをストアから組み立てます。
// ブロードキャスターとポーリング用エンドポイントの両方がこれを使います。
func RoomState(db *gorm.DB, roomID uint) (*models.RoomSnapshot, error) {
	var details models.RoomDetails
	err := db.Table("rooms").
		Select("rooms.id AS room_id, rooms.code AS room_code, rooms.status, rooms.created_at, rooms.owner_id, users.username AS owner_username").
		Joins("JOIN users ON users.id = rooms.owner_id").
		Where("rooms.id = ?", roomID).
		Take(&details).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	players, err := roomPlayers(db, roomID)
	if err != nil {
		return nil, err
	}

	// player_countは常にメンバー行の数から導出する
	details.PlayerCount = len(players)
	return &models.RoomSnapshot{Room: details, Players: players}, nil
}

// 入室順（joined_at昇順）でメンバー一覧を取得
func roomPlayers(db *gorm.DB, roomID uint) ([]models.PlayerInfo, error) {
	players := []models.PlayerInfo{}
	err := db.Table("room_players").
		Select("room_players.user_id, users.username, room_players.joined_at").
		Joins("JOIN users ON users.id = room_players.user_id").
		Where("room_players.room_id = ?", roomID).
		Order("room_players.joined_at ASC").
		Scan(&players).Error
	return players, err
}

// FindRoomByCode はルームコードからスナップショットを検索します。
// QRスキャンで読み取ったコードの照会に使われます。
func FindRoomByCode(db *gorm.DB, code string) (*models.RoomSnapshot, error) {
	var details models.RoomDetails
	err := db.Table("rooms").
		Select("rooms.id AS room_id, rooms.code AS room_code, rooms.status, rooms.created_at, rooms.owner_id, users.username AS owner_username").
		Joins("JOIN users ON users.id = rooms.owner_id").
		Where("rooms.code = ?", code).
		Take(&details).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	players, err := roomPlayers(db, details.RoomID)
	if err != nil {
		return nil, err
	}

	details.PlayerCount = len(players)
	return &models.RoomSnapshot{Room: details, Players: players}, nil
}

// ListFilter はルーム一覧のフィルター条件です。
type ListFilter struct {
	Status string // waiting, playing, finished, closed のいずれか（空なら全て）
	Search string // ルームコードまたはオーナー名の部分一致
	Limit  int
	Offset int
}

// ListRooms はダッシュボードに表示するルーム一覧を取得します。
func ListRooms(db *gorm.DB, filter ListFilter) ([]models.RoomSnapshot, error) {
	if filter.Limit <= 0 {
		filter.Limit = 10
	}

	query := db.Table("rooms").
		Select("rooms.id AS room_id, rooms.code AS room_code, rooms.status, rooms.created_at, rooms.owner_id, users.username AS owner_username").
		Joins("JOIN users ON users.id = rooms.owner_id")

	if filter.Status != "" {
		query = query.Where("rooms.status = ?", filter.Status)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("rooms.code LIKE ? OR users.username LIKE ?", pattern, pattern)
	}

	var details []models.RoomDetails
	err := query.Order("rooms.created_at DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Scan(&details).Error
	if err != nil {
		return nil, err
	}

	snapshots := make([]models.RoomSnapshot, 0, len(details))
	for _, d := range details {
		players, err := roomPlayers(db, d.RoomID)
		if err != nil {
			return nil, err
		}
		d.PlayerCount = len(players)
		snapshots = append(snapshots, models.RoomSnapshot{Room: d, Players: players})
	}
	return snapshots, nil
}

// MembershipInfo はルームへのアクセス可否の照会結果です。
type MembershipInfo struct {
	Authorized bool   `json:"authorized"`
	RoomStatus string `json:"room_status"`
	IsOwner    bool   `json:"is_owner"`
	IsMember   bool   `json:"is_member"`
}

// Membership はユーザーがルームのメンバー（またはオーナー）かどうかを返します。
func Membership(db *gorm.DB, roomID, userID uint) (*MembershipInfo, error) {
	var r models.Room
	if err := db.First(&r, roomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var memberCount int64
	if err := db.Model(&models.RoomPlayer{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&memberCount).Error; err != nil {
		return nil, err
	}

	info := &MembershipInfo{
		RoomStatus: r.Status,
		IsOwner:    r.OwnerID == userID,
		IsMember:   memberCount > 0,
	}
	info.Authorized = info.IsOwner || info.IsMember
	return info, nil
}

// GameAccess はゲーム画面へのアクセス可否を返します。
// ルームがplaying状態でなければメンバーであっても拒否されます。
func GameAccess(db *gorm.DB, roomID, userID uint) (*MembershipInfo, error) {
	info, err := Membership(db, roomID, userID)
	if err != nil {
		return nil, err
	}

	if info.RoomStatus != models.RoomStatusPlaying {
		info.Authorized = false
	}
	return info, nil
}

// PlayerScore はゲーム画面のスコアボード用の行です。
type PlayerScore struct {
	UserID   uint   `json:"id"`
	Username string `json:"username"`
	Score    int    `json:"score"`
}

// PlayersScores はルーム内全員の現在スコアを降順で取得します。
// まだスコアのないプレイヤーは0点として返します。
func PlayersScores(db *gorm.DB, roomID uint) ([]PlayerScore, error) {
	scores := []PlayerScore{}
	err := db.Table("room_players").
		Select("users.id AS user_id, users.username, COALESCE(game_results.score, 0) AS score").
		Joins("JOIN users ON users.id = room_players.user_id").
		Joins("LEFT JOIN game_results ON game_results.room_id = room_players.room_id AND game_results.user_id = room_players.user_id").
		Where("room_players.room_id = ?", roomID).
		Order("score DESC").
		Scan(&scores).Error
	return scores, err
}
