package sources

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/BaSui01/cricketflow/rag"
	"github.com/fsnotify/fsnotify"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// ErrNoLiveData 当前没有可用的比赛快照
var ErrNoLiveData = errors.New("no live match data")

// LiveConfig 实时快照配置
type LiveConfig struct {
	DataFile string `json:"data_file"`
	// MatchID 为空时取文件中第一个比赛
	MatchID         string `json:"match_id"`
	Watch           bool   `json:"watch"`
	CommentaryOvers int    `json:"commentary_overs"`
}

// Snapshot 一场进行中比赛的渲染结果
type Snapshot struct {
	MatchID    string `json:"match_id"`
	Team1      string `json:"team1"`
	Team1Score string `json:"team1_score"`
	Team2      string `json:"team2"`
	Team2Score string `json:"team2_score"`
	Content    string `json:"content"`
}

// Evidence 转换为证据条目
func (s *Snapshot) Evidence() rag.Evidence {
	return rag.Evidence{
		Content: s.Content,
		Source:  rag.SourceLiveSnapshot,
		Metadata: map[string]any{
			"match_id":     s.MatchID,
			"content_type": "cricket_match_data",
			"team1":        s.Team1,
			"team1_score":  s.Team1Score,
			"team2":        s.Team2,
			"team2_score":  s.Team2Score,
		},
	}
}

// LiveStore 持有最新快照。读路径无锁，文件变化时由 watcher 整体替换。
type LiveStore struct {
	cfg     LiveConfig
	logger  *zap.Logger
	current atomic.Pointer[Snapshot]

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
}

// NewLiveStore 创建快照存储
func NewLiveStore(cfg LiveConfig, logger *zap.Logger) *LiveStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CommentaryOvers <= 0 {
		cfg.CommentaryOvers = 2
	}
	return &LiveStore{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "live_store")),
	}
}

// Start 首次加载快照，按配置启动文件监听。文件不存在不视为错误。
func (s *LiveStore) Start(ctx context.Context) error {
	if err := s.Reload(); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("initial live snapshot load failed", zap.Error(err))
	}
	if !s.cfg.Watch || s.cfg.DataFile == "" {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create live snapshot watcher: %w", err)
	}
	// 监听目录，兼容先写临时文件再 rename 的更新方式
	dir := filepath.Dir(s.cfg.DataFile)
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	s.mu.Lock()
	s.watcher = w
	s.mu.Unlock()

	s.wg.Add(1)
	go s.watchLoop(ctx, w)
	s.logger.Info("watching live snapshot", zap.String("file", s.cfg.DataFile))
	return nil
}

func (s *LiveStore) watchLoop(ctx context.Context, w *fsnotify.Watcher) {
	defer s.wg.Done()
	target := filepath.Clean(s.cfg.DataFile)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
				!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if err := s.Reload(); err != nil && !errors.Is(err, os.ErrNotExist) {
				s.logger.Warn("live snapshot reload failed, keeping previous", zap.Error(err))
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.logger.Warn("live snapshot watcher error", zap.Error(err))
		}
	}
}

// Close 停止文件监听
func (s *LiveStore) Close() error {
	s.mu.Lock()
	w := s.watcher
	s.watcher = nil
	s.mu.Unlock()

	var err error
	if w != nil {
		err = w.Close()
	}
	s.wg.Wait()
	return err
}

// Reload 重新读取快照文件。文件不存在时清空当前快照；解析失败时保留旧快照。
func (s *LiveStore) Reload() error {
	data, err := os.ReadFile(s.cfg.DataFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.current.Store(nil)
		}
		return err
	}
	return s.LoadBytes(data)
}

// LoadBytes 从原始 JSON 加载快照
func (s *LiveStore) LoadBytes(data []byte) error {
	snap, err := ParseSnapshot(data, s.cfg.MatchID, s.cfg.CommentaryOvers)
	if errors.Is(err, ErrNoLiveData) {
		s.current.Store(nil)
		return nil
	}
	if err != nil {
		return err
	}
	s.current.Store(snap)
	s.logger.Debug("live snapshot loaded",
		zap.String("match_id", snap.MatchID),
		zap.String("team1_score", snap.Team1Score),
		zap.String("team2_score", snap.Team2Score))
	return nil
}

// Available 是否存在可用快照
func (s *LiveStore) Available() bool {
	return s.current.Load() != nil
}

// Snapshot 返回当前快照
func (s *LiveStore) Snapshot() (*Snapshot, bool) {
	snap := s.current.Load()
	return snap, snap != nil
}

// Retrieve 返回至多一条实时快照证据；无数据时返回 ErrNoLiveData
func (s *LiveStore) Retrieve(ctx context.Context, _ string) ([]rag.Evidence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap, ok := s.Snapshot()
	if !ok {
		return nil, ErrNoLiveData
	}
	return []rag.Evidence{snap.Evidence()}, nil
}

// =============================================================================
// 快照解析与渲染
// =============================================================================

// ParseSnapshot 解析按比赛 ID 索引的快照文件并渲染为文本
func ParseSnapshot(data []byte, matchID string, commentaryOvers int) (*Snapshot, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("live snapshot is not valid JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("live snapshot must be a JSON object")
	}

	var m gjson.Result
	if matchID != "" {
		m = root.Get(gjson.Escape(matchID))
	} else {
		root.ForEach(func(key, value gjson.Result) bool {
			matchID, m = key.String(), value
			return false
		})
	}
	if !m.Exists() || !m.IsObject() || len(m.Map()) == 0 {
		return nil, ErrNoLiveData
	}

	snap := &Snapshot{
		MatchID: matchID,
		Team1:   stringOr(m.Get("match.team1_name"), "Team 1"),
		Team2:   stringOr(m.Get("match.team2_name"), "Team 2"),
	}
	snap.Team1Score, snap.Team2Score = teamScores(m)
	snap.Content = renderSnapshot(m, snap, commentaryOvers)
	return snap, nil
}

// teamScores 先取已完成局，再用当前局覆盖
func teamScores(m gjson.Result) (string, string) {
	team1ID := m.Get("match.team1_id").String()
	team2ID := m.Get("match.team2_id").String()
	s1, s2 := "Yet to bat", "Yet to bat"

	assign := func(battingID, score string) {
		switch {
		case battingID == "":
		case battingID == team1ID:
			s1 = score
		case battingID == team2ID:
			s2 = score
		}
	}

	m.Get("innings").ForEach(func(_, inn gjson.Result) bool {
		if inn.Get("event").Int() == 5 || inn.Get("event_name").String() == "complete" {
			assign(inn.Get("batting_team_id").String(), formatScore(inn))
		}
		return true
	})

	cur := m.Get("centre.common.innings")
	if cur.Exists() {
		assign(cur.Get("batting_team_id").String(), formatScore(cur))
	}
	return s1, s2
}

func formatScore(inn gjson.Result) string {
	return fmt.Sprintf("%s/%s (%s ov)",
		stringOr(inn.Get("runs"), "0"),
		stringOr(inn.Get("wickets"), "0"),
		stringOr(inn.Get("overs"), "0.0"))
}

func renderSnapshot(m gjson.Result, snap *Snapshot, commentaryOvers int) string {
	var b strings.Builder
	b.WriteString("Live Cricket Match Information:\n")
	b.WriteString("------------------------------\n")
	fmt.Fprintf(&b, "Match: %s vs %s\n\n", snap.Team1, snap.Team2)

	b.WriteString("Current Scores:\n")
	fmt.Fprintf(&b, "%s: %s\n", snap.Team1, snap.Team1Score)
	fmt.Fprintf(&b, "%s: %s\n\n", snap.Team2, snap.Team2Score)

	b.WriteString("Match Situation:\n")
	b.WriteString(matchSituation(m.Get("live.innings")))
	b.WriteString("\n\n")

	b.WriteString("Match Summary:\n")
	b.WriteString(stringOr(m.Get("live.status"), "Match information not available"))
	b.WriteString("\n\n")

	b.WriteString("Current Batsmen:\n")
	m.Get("centre.batting").ForEach(func(_, bat gjson.Result) bool {
		summary := bat.Get("runs_summary").Array()
		fours, sixes := "0", "0"
		if len(summary) > 1 {
			fours = summary[1].String()
		}
		if len(summary) > 4 {
			sixes = summary[4].String()
		}
		fmt.Fprintf(&b, "%s is %s off %s balls (SR: %s, %s fours, %s sixes). Status: %s.\n",
			stringOr(bat.Get("known_as"), "Unknown"),
			stringOr(bat.Get("runs"), "0"),
			stringOr(bat.Get("balls_faced"), "0"),
			stringOr(bat.Get("strike_rate"), "0"),
			fours, sixes,
			bat.Get("live_current_name").String())
		return true
	})
	b.WriteString("\n")

	b.WriteString("Current Bowlers:\n")
	m.Get("centre.bowling").ForEach(func(_, bowl gjson.Result) bool {
		fmt.Fprintf(&b, "%s has %s/%s from %s overs (economy: %s). Status: %s.\n",
			stringOr(bowl.Get("known_as"), "Unknown"),
			stringOr(bowl.Get("wickets"), "0"),
			stringOr(bowl.Get("conceded"), "0"),
			stringOr(bowl.Get("overs"), "0.0"),
			stringOr(bowl.Get("economy_rate"), "0"),
			bowl.Get("live_current_name").String())
		return true
	})
	b.WriteString("\n")

	b.WriteString("Recent Commentary:\n")
	for i, over := range m.Get("comms").Array() {
		if i >= commentaryOvers {
			break
		}
		over.Get("ball").ForEach(func(_, ball gjson.Result) bool {
			fmt.Fprintf(&b, "%s - %s: %s - %s\n",
				ball.Get("overs_actual").String(),
				ball.Get("players").String(),
				ball.Get("event").String(),
				StripHTML(ball.Get("text").String()))
			return true
		})
	}
	return strings.TrimRight(b.String(), "\n")
}

func matchSituation(inn gjson.Result) string {
	if !inn.Get("runs").Exists() || !inn.Get("wickets").Exists() {
		return ""
	}
	runs := inn.Get("runs").Int()
	s := fmt.Sprintf("Score: %d/%s in %s overs", runs, inn.Get("wickets").String(), stringOr(inn.Get("overs"), "0.0"))
	if target := inn.Get("target").Int(); target > 0 {
		s += fmt.Sprintf(". Target: %d. Need %d from %s overs at RRR %s per over.",
			target, target-runs,
			stringOr(inn.Get("remaining_overs"), "0.0"),
			stringOr(inn.Get("required_run_rate"), "0"))
	}
	return s
}

// StripHTML 去掉评论文本中的 HTML 标签并压缩空白
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			b.WriteByte(' ')
		}
	}
}

func stringOr(r gjson.Result, def string) string {
	if !r.Exists() || r.Type == gjson.Null {
		return def
	}
	return r.String()
}
