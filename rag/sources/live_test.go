package sources_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BaSui01/cricketflow/rag"
	"github.com/BaSui01/cricketflow/rag/sources"
	"github.com/BaSui01/cricketflow/testutil"
	"github.com/BaSui01/cricketflow/testutil/fixtures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSnapshot_RendersMatch(t *testing.T) {
	snap, err := sources.ParseSnapshot([]byte(fixtures.LiveSnapshotJSON), "", 2)
	require.NoError(t, err)

	assert.Equal(t, fixtures.LiveMatchID, snap.MatchID)
	assert.Equal(t, "Mumbai Indians", snap.Team1)
	assert.Equal(t, "Sunrisers Hyderabad", snap.Team2)
	assert.Equal(t, "101/2 (11.4 ov)", snap.Team1Score)
	assert.Equal(t, "162/5 (20.0 ov)", snap.Team2Score)

	for _, line := range []string{
		"Live Cricket Match Information:",
		"Match: Mumbai Indians vs Sunrisers Hyderabad",
		"Mumbai Indians: 101/2 (11.4 ov)",
		"Sunrisers Hyderabad: 162/5 (20.0 ov)",
		"Score: 101/2 in 11.4 overs. Target: 163. Need 62 from 8.2 overs at RRR 7.44 per over.",
		"Mumbai Indians need 62 runs in 50 balls",
		"Suryakumar Yadav is 24 off 14 balls (SR: 171.42, 2 fours, 1 sixes). Status: striker.",
		"Tilak Varma is 11 off 9 balls (SR: 122.22, 1 fours, 0 sixes). Status: non-striker.",
		"Pat Cummins has 1/22 from 2.4 overs (economy: 8.25). Status: current bowler.",
		"11.4 - Cummins to Suryakumar: FOUR - Short and wide, carved over point",
		"11.3 - Cummins to Varma: 1 run - worked to midwicket",
		"10.6 - Zampa to Varma: no run - defended",
	} {
		assert.Contains(t, snap.Content, line)
	}
	// 只取最近两个 over
	assert.NotContains(t, snap.Content, "dropped by the window")
	assert.False(t, strings.HasSuffix(snap.Content, "\n"))
}

func TestParseSnapshot_SelectsConfiguredMatch(t *testing.T) {
	data := `{"1": {"match": {"team1_name": "A", "team2_name": "B"}}, "2": {"match": {"team1_name": "C", "team2_name": "D"}}}`
	snap, err := sources.ParseSnapshot([]byte(data), "2", 2)
	require.NoError(t, err)
	assert.Equal(t, "C", snap.Team1)
	assert.Equal(t, "Yet to bat", snap.Team1Score)
	assert.Equal(t, "Yet to bat", snap.Team2Score)

	_, err = sources.ParseSnapshot([]byte(data), "3", 2)
	assert.ErrorIs(t, err, sources.ErrNoLiveData)
}

func TestParseSnapshot_EmptyAndInvalid(t *testing.T) {
	_, err := sources.ParseSnapshot([]byte(fixtures.EmptySnapshotJSON), "", 2)
	assert.ErrorIs(t, err, sources.ErrNoLiveData)

	_, err = sources.ParseSnapshot([]byte(`{"1": {}}`), "", 2)
	assert.ErrorIs(t, err, sources.ErrNoLiveData)

	_, err = sources.ParseSnapshot([]byte(`{not json`), "", 2)
	require.Error(t, err)
	assert.NotErrorIs(t, err, sources.ErrNoLiveData)

	_, err = sources.ParseSnapshot([]byte(`[1,2]`), "", 2)
	require.Error(t, err)
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "plain text", sources.StripHTML("  plain text "))
	assert.Equal(t, "Short and wide, carved over point", sources.StripHTML("<p>Short and wide, <b>carved</b> over point</p>"))
	assert.Equal(t, "4 & out", sources.StripHTML("4 &amp; out"))
}

func TestLiveStore_Retrieve(t *testing.T) {
	path := testutil.WriteTempFile(t, "data_live.json", []byte(fixtures.LiveSnapshotJSON))
	store := sources.NewLiveStore(sources.LiveConfig{DataFile: path}, nil)
	require.NoError(t, store.Start(context.Background()))
	defer store.Close()

	require.True(t, store.Available())
	ev, err := store.Retrieve(context.Background(), "what is the score?")
	require.NoError(t, err)
	require.Len(t, ev, 1)
	assert.Equal(t, rag.SourceLiveSnapshot, ev[0].Source)
	assert.Equal(t, "cricket_match_data", ev[0].Metadata["content_type"])
	assert.Equal(t, fixtures.LiveMatchID, ev[0].Metadata["match_id"])
}

func TestLiveStore_MissingFile(t *testing.T) {
	store := sources.NewLiveStore(sources.LiveConfig{DataFile: filepath.Join(t.TempDir(), "absent.json")}, nil)
	require.NoError(t, store.Start(context.Background()))
	defer store.Close()

	assert.False(t, store.Available())
	_, err := store.Retrieve(context.Background(), "q")
	assert.ErrorIs(t, err, sources.ErrNoLiveData)
}

func TestLiveStore_ParseErrorKeepsPrevious(t *testing.T) {
	store := sources.NewLiveStore(sources.LiveConfig{}, nil)
	require.NoError(t, store.LoadBytes([]byte(fixtures.LiveSnapshotJSON)))
	require.Error(t, store.LoadBytes([]byte(`{broken`)))
	assert.True(t, store.Available())

	// 空对象表示比赛结束，清空快照
	require.NoError(t, store.LoadBytes([]byte(fixtures.EmptySnapshotJSON)))
	assert.False(t, store.Available())
}

func TestLiveStore_WatchReloads(t *testing.T) {
	path := testutil.WriteTempFile(t, "data_live.json", []byte(fixtures.EmptySnapshotJSON))
	store := sources.NewLiveStore(sources.LiveConfig{DataFile: path, Watch: true}, nil)
	require.NoError(t, store.Start(context.Background()))
	defer store.Close()
	require.False(t, store.Available())

	require.NoError(t, os.WriteFile(path, []byte(fixtures.LiveSnapshotJSON), 0o644))
	testutil.AssertEventuallyTrue(t, store.Available, 5*time.Second)

	require.NoError(t, os.Remove(path))
	testutil.AssertEventuallyTrue(t, func() bool { return !store.Available() }, 5*time.Second)
}

func TestLiveStore_CancelledContext(t *testing.T) {
	store := sources.NewLiveStore(sources.LiveConfig{}, nil)
	require.NoError(t, store.LoadBytes([]byte(fixtures.LiveSnapshotJSON)))
	_, err := store.Retrieve(testutil.CancelledContext(), "q")
	assert.ErrorIs(t, err, context.Canceled)
}
