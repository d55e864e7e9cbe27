package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BaSui01/cricketflow/api"
	"github.com/BaSui01/cricketflow/api/handlers"
	"github.com/BaSui01/cricketflow/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// ❓ ask / batch 命令
// =============================================================================

// cliApp ask/batch 共用：日志写 stderr，stdout 只输出结果
func cliApp(ctx context.Context, flags *globalFlags) (*App, *zap.Logger, error) {
	cfg, err := flags.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	cfg.Log.OutputPaths = []string{"stderr"}
	logger := initLogger(cfg.Log)

	app, err := NewApp(ctx, cfg, nil, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, fmt.Errorf("initialize agent: %w", err)
	}
	return app, logger, nil
}

func askCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a single question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return errors.New("question must not be empty")
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			app, logger, err := cliApp(ctx, flags)
			if err != nil {
				return err
			}
			defer func() {
				_ = app.Close()
				_ = logger.Sync()
			}()

			res := app.Orchestrator().Ask(ctx, question)
			out := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(out).Encode(api.NewAskResponse(res))
			}
			if res.Error != "" {
				fmt.Fprintln(out, res.Error)
				return nil
			}
			fmt.Fprintln(out, res.Answer)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full response as JSON")
	return cmd
}

func batchCmd(flags *globalFlags) *cobra.Command {
	var (
		file        string
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Answer one question per line and print JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			questions, err := readQuestions(file, cmd.InOrStdin())
			if err != nil {
				return err
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			app, logger, err := cliApp(ctx, flags)
			if err != nil {
				return err
			}
			defer func() {
				_ = app.Close()
				_ = logger.Sync()
			}()

			if concurrency <= 0 {
				concurrency = app.cfg.Agent.BatchConcurrency
			}
			logger.Info("batch started", zap.Int("questions", len(questions)), zap.Int("concurrency", concurrency))
			return runBatch(ctx, app.Orchestrator(), questions, concurrency, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "Question file, one per line (- for stdin)")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "Concurrent episodes (default from agent.batch_concurrency)")
	return cmd
}

// BatchLine batch 命令输出的一行
type BatchLine struct {
	Index    int    `json:"index"`
	Question string `json:"question"`
	api.AskResponse
}

// runBatch 并发回答，按输入顺序输出
func runBatch(ctx context.Context, asker handlers.Asker, questions []string, concurrency int, w io.Writer) error {
	if concurrency <= 0 {
		concurrency = config.DefaultAgentConfig().BatchConcurrency
	}
	lines := make([]BatchLine, len(questions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, q := range questions {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			lines[i] = BatchLine{Index: i, Question: q, AskResponse: api.NewAskResponse(asker.Ask(gctx, q))}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	for _, line := range lines {
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}
	return nil
}

// readQuestions 跳过空行与 # 注释
func readQuestions(path string, stdin io.Reader) ([]string, error) {
	r := stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open questions: %w", err)
		}
		defer f.Close()
		r = f
	}

	var questions []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		questions = append(questions, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, errors.New("no questions to answer")
	}
	return questions, nil
}
