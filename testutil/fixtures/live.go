// Package fixtures 提供测试数据样例。
package fixtures

// LiveMatchID 样例快照中的比赛 ID
const LiveMatchID = "1473470"

// LiveSnapshotJSON 一场进行中的比赛快照：SRH 已完成 20 over，MI 第二局追分中。
const LiveSnapshotJSON = `{
  "1473470": {
    "match": {
      "team1_name": "Mumbai Indians",
      "team2_name": "Sunrisers Hyderabad",
      "team1_id": 6,
      "team2_id": 5143,
      "description": "33rd Match, Indian Premier League",
      "ground_name": "Wankhede Stadium, Mumbai",
      "date": "2025-04-17"
    },
    "innings": [
      {"batting_team_id": 5143, "runs": 162, "wickets": 5, "overs": "20.0", "event": 5, "event_name": "complete"},
      {"batting_team_id": 6, "runs": 97, "wickets": 2, "overs": "11.2", "event": 1, "event_name": "batting"}
    ],
    "centre": {
      "common": {
        "innings": {"batting_team_id": 6, "runs": 101, "wickets": 2, "overs": "11.4"}
      },
      "batting": [
        {"known_as": "Suryakumar Yadav", "runs": 24, "balls_faced": 14, "runs_summary": [3, 2, 1, 0, 1], "strike_rate": "171.42", "live_current_name": "striker"},
        {"known_as": "Tilak Varma", "runs": 11, "balls_faced": 9, "runs_summary": [4, 1], "strike_rate": "122.22", "live_current_name": "non-striker"}
      ],
      "bowling": [
        {"known_as": "Pat Cummins", "overs": "2.4", "maidens": 0, "conceded": 22, "wickets": 1, "economy_rate": "8.25", "live_current_name": "current bowler"}
      ]
    },
    "live": {
      "status": "Mumbai Indians need 62 runs in 50 balls",
      "innings": {"runs": 101, "wickets": 2, "overs": "11.4", "run_rate": "8.66", "target": 163, "required_run_rate": "7.44", "remaining_overs": "8.2"}
    },
    "comms": [
      {"ball": [
        {"overs_actual": "11.4", "players": "Cummins to Suryakumar", "event": "FOUR", "text": "<p>Short and wide, <b>carved</b> over point</p>"},
        {"overs_actual": "11.3", "players": "Cummins to Varma", "event": "1 run", "text": "worked to midwicket"}
      ]},
      {"ball": [
        {"overs_actual": "10.6", "players": "Zampa to Varma", "event": "no run", "text": "defended"}
      ]},
      {"ball": [
        {"overs_actual": "9.6", "players": "Zampa to Suryakumar", "event": "SIX", "text": "should be dropped by the window"}
      ]}
    ]
  }
}`

// EmptySnapshotJSON 无比赛数据
const EmptySnapshotJSON = `{}`

// Verdict 构造 {"binary_score": ...} 回复
func Verdict(yes bool) string {
	if yes {
		return `{"binary_score": "yes", "explanation": "relevant"}`
	}
	return `{"binary_score": "no", "explanation": "not relevant"}`
}
