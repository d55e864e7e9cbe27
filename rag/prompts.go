package rag

import "fmt"

// 判定类提示词追加的输出约定；JSON 模式要求消息中出现 "JSON"
const verdictFormatInstruction = `

Respond with a single JSON object of the form {"binary_score": "yes" or "no", "explanation": "<one short sentence>"} and nothing else.`

// =============================================================================
// 系统提示词
// =============================================================================

const (
	PromptDocumentGrader = `You are a grader assessing relevance of a retrieved document to a user question.
It does not need to be a stringent test. The goal is to filter out erroneous retrievals.
If the document contains keyword(s) or semantic meaning related to the user question, grade it as relevant.
Give a binary score 'yes' or 'no' score to indicate whether the document is relevant to the question.` + verdictFormatInstruction

	PromptGroundednessGrader = `You are a grader assessing whether an LLM generation is grounded in / supported by a set of retrieved facts.
Give a binary score 'yes' or 'no'. 'Yes' means that the answer is grounded in / supported by the set of facts.` + verdictFormatInstruction

	PromptAnswerGrader = `You are a grader assessing whether an answer addresses / resolves a question.
Give a binary score 'yes' or 'no'. 'Yes' means that the answer resolves the question.` + verdictFormatInstruction

	PromptRewriter = `You are a question re-writer that converts an input question to a better version that is optimized
for vectorstore retrieval. Look at the input and try to reason about the underlying semantic intent / meaning.
Return only the improved question.`

	PromptStructuredRelevance = `You are an expert at determining whether a database would be useful for answering user questions about IPL cricket (Indian Premier League) statistics.
Based on the user's question and the database description, determine if querying this database
would provide relevant information to help answer the question.

Database Description: The database contains cricket match delivery information from IPL matches, stored in a table called 'deliveries'.
Schema: match_id, inning, batting_team, bowling_team, over, ball, batter, bowler, non_striker, batsman_runs, extra_runs, total_runs, extras_type, is_wicket, player_dismissed, dismissal_kind, fielder.
It contains statistics about cricket matches, teams, and players.

Consider:
1. Is the question asking about specific cricket stats (runs, wickets, scores, overs, players, teams)?
2. Could numerical data or aggregations (counts, sums, averages) from the database help?
3. Is the question about general cricket rules, history, or information *not* likely in ball-by-ball data?

Give a binary score 'yes' or 'no'. 'Yes' means the database is relevant. Also provide a brief explanation.
Only respond 'yes' if the database likely contains the specific information asked for.` + verdictFormatInstruction

	PromptSQLGenerator = `You are an expert PostgreSQL query writer for a cricket database.
Your task is to generate a valid SQL query to retrieve information needed to answer the user's question, based on the 'deliveries' table.

Database Description: Contains cricket match delivery information from IPL matches in a table named 'deliveries'.
Schema: match_id, inning, batting_team, bowling_team, over, ball, batter, bowler, non_striker, batsman_runs, extra_runs, total_runs, extras_type, is_wicket, player_dismissed, dismissal_kind, fielder.

Given the user question, return ONLY the SQL query.
Rules:
1. Only use the 'deliveries' table and its columns listed above.
2. Return ONLY the SQL query text - no explanations, backticks, or markdown.
3. Use aggregations (COUNT, SUM, AVG) and GROUP BY where appropriate for statistical questions.
4. Use WHERE clauses to filter by player names, teams, match conditions etc. mentioned in the question. Be precise with names if possible.
5. LIMIT results to a reasonable number (e.g., LIMIT 20) if querying many individual records.
6. Ensure the query is valid PostgreSQL.
7. Handle potential case sensitivity for names if needed (e.g., use ILIKE or lower()). Example: WHERE lower(batter) = lower('Player Name')`

	PromptLiveRelevance = `You are an expert at determining whether live cricket match data would be useful for answering user questions.
Based on the user's question, determine if accessing current live cricket match data
would provide relevant information to help answer the question.

Live Match Data Description: The data contains real-time information about an ongoing cricket match including:
- Current score, run rate, wickets, and overs
- Details about current batsmen (runs, balls faced, strike rate)
- Details about current bowlers (wickets, economy, overs)
- Recent ball-by-ball commentary
- Match situation and context (target, required run rate)

Consider:
1. Is the question asking about the current state of a cricket match (score, players, events)?
2. Is the question about predictions or analysis based on the current match situation?
3. Does the question refer to "now", "current", "this match", "live", or other present-tense indicators?
4. Is the question about general cricket rules or historical data NOT related to a current match?

Give a binary score 'yes' or 'no'. 'Yes' means the live match data is relevant.
Also provide a brief explanation for your decision.` + verdictFormatInstruction

	PromptLiveQuickCheck = `You are an expert at determining whether a user question is asking about a live or current cricket match.

For questions that explicitly or implicitly ask about:
- Current match state, score, or situation
- Live match events or commentary
- "Current", "ongoing", "now", or other present-tense indicators about a cricket match
- Recent events in a match happening today or "this match"
- Predictions or analysis about the rest of a match in progress

Respond with only 'yes' if the question is likely about a current/live match, or 'no' if not.`

	// PromptGenerate 生成提示词模板（作为单条 user 消息发送）
	PromptGenerate = "You are an assistant for question-answering tasks. Use the following pieces of retrieved context to answer the question. If you don't know the answer, just say that you don't know. Use three sentences maximum and keep the answer concise.\nQuestion: %s \nContext: %s \nAnswer:"
)

// =============================================================================
// 用户消息模板
// =============================================================================

func documentGraderInput(document, question string) string {
	return fmt.Sprintf("Retrieved document: \n\n %s \n\n User question: %s", document, question)
}

func groundednessInput(facts, generation string) string {
	return fmt.Sprintf("Set of facts: \n\n %s \n\n LLM generation: %s", facts, generation)
}

func answerGraderInput(question, generation string) string {
	return fmt.Sprintf("User question: \n\n %s \n\n LLM generation: %s", question, generation)
}

func rewriterInput(question string) string {
	return fmt.Sprintf("Here is the initial question: \n\n %s \n Formulate an improved question.", question)
}

// QuestionInput 分类器与 SQL 生成共用的用户消息
func QuestionInput(question string) string {
	return fmt.Sprintf("User question: \n\n %s", question)
}

func liveQuickCheckInput(question string) string {
	return fmt.Sprintf("Is this query about a live or current cricket match: '%s'", question)
}

func generateInput(question, context string) string {
	return fmt.Sprintf(PromptGenerate, question, context)
}
