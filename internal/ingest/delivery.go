package ingest

import (
	"strconv"
	"strings"
)

// Delivery deliveries 表的一行，对应一次投球
type Delivery struct {
	ID              int64   `gorm:"column:id;primaryKey;autoIncrement"`
	MatchID         int     `gorm:"column:match_id"`
	Inning          int     `gorm:"column:inning"`
	BattingTeam     *string `gorm:"column:batting_team"`
	BowlingTeam     *string `gorm:"column:bowling_team"`
	Over            int     `gorm:"column:over"`
	Ball            int     `gorm:"column:ball"`
	Batter          *string `gorm:"column:batter"`
	Bowler          *string `gorm:"column:bowler"`
	NonStriker      *string `gorm:"column:non_striker"`
	BatsmanRuns     int     `gorm:"column:batsman_runs"`
	ExtraRuns       int     `gorm:"column:extra_runs"`
	TotalRuns       int     `gorm:"column:total_runs"`
	ExtrasType      *string `gorm:"column:extras_type"`
	IsWicket        bool    `gorm:"column:is_wicket"`
	PlayerDismissed *string `gorm:"column:player_dismissed"`
	DismissalKind   *string `gorm:"column:dismissal_kind"`
	Fielder         *string `gorm:"column:fielder"`
}

// TableName 固定表名
func (Delivery) TableName() string { return "deliveries" }

// Columns CSV 中识别的列，顺序与表结构一致
var Columns = []string{
	"match_id", "inning", "batting_team", "bowling_team", "over", "ball",
	"batter", "bowler", "non_striker", "batsman_runs", "extra_runs", "total_runs",
	"extras_type", "is_wicket", "player_dismissed", "dismissal_kind", "fielder",
}

// requiredColumns 缺失即拒绝整个文件
var requiredColumns = []string{"match_id", "inning", "over", "ball", "batter", "bowler"}

// nullMarkers 视为空值的字符串
var nullMarkers = map[string]bool{"": true, "nan": true, "none": true, "na": true, "null": true}

// row 按列名取值的 CSV 行
type row struct {
	index  map[string]int
	fields []string
}

func (r row) raw(col string) string {
	i, ok := r.index[col]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

// text 返回可空字符串
func (r row) text(col string) *string {
	v := r.raw(col)
	if nullMarkers[strings.ToLower(v)] {
		return nil
	}
	return &v
}

// number 解析整数，无法解析时记为 0
func (r row) number(col string) int {
	v := r.raw(col)
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return int(f)
	}
	return 0
}

// flag 解析布尔值，接受 1/0 与 true/false
func (r row) flag(col string) bool {
	v := strings.ToLower(r.raw(col))
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return r.number(col) != 0
}

func (r row) delivery() Delivery {
	return Delivery{
		MatchID:         r.number("match_id"),
		Inning:          r.number("inning"),
		BattingTeam:     r.text("batting_team"),
		BowlingTeam:     r.text("bowling_team"),
		Over:            r.number("over"),
		Ball:            r.number("ball"),
		Batter:          r.text("batter"),
		Bowler:          r.text("bowler"),
		NonStriker:      r.text("non_striker"),
		BatsmanRuns:     r.number("batsman_runs"),
		ExtraRuns:       r.number("extra_runs"),
		TotalRuns:       r.number("total_runs"),
		ExtrasType:      r.text("extras_type"),
		IsWicket:        r.flag("is_wicket"),
		PlayerDismissed: r.text("player_dismissed"),
		DismissalKind:   r.text("dismissal_kind"),
		Fielder:         r.text("fielder"),
	}
}
