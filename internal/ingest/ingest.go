package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/BaSui01/cricketflow/internal/database"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultBatchSize 每批写入行数
const DefaultBatchSize = 1000

// ErrMissingColumns CSV 表头缺少必需列
var ErrMissingColumns = errors.New("csv header is missing required columns")

// Options 一次导入的参数
type Options struct {
	// BatchSize <= 0 时使用 DefaultBatchSize
	BatchSize int
	// Truncate 导入前清空表；否则表非空时跳过
	Truncate bool
}

// Result 导入结果
type Result struct {
	Rows     int
	Batches  int
	Existing int64
	Skipped  bool
	Duration time.Duration
}

// Ingester 将 deliveries CSV 导入结构化数据存储
type Ingester struct {
	db     *database.PoolManager
	logger *zap.Logger
}

// NewIngester 创建导入器
func NewIngester(db *database.PoolManager, logger *zap.Logger) *Ingester {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingester{db: db, logger: logger.With(zap.String("component", "ingest"))}
}

// IngestFile 导入 CSV 文件
func (i *Ingester) IngestFile(ctx context.Context, path string, opts Options) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	i.logger.Info("ingesting deliveries", zap.String("path", path), zap.Bool("truncate", opts.Truncate))
	return i.Ingest(ctx, f, opts)
}

// Ingest 从 reader 导入。整个导入在一个事务内完成，失败时表保持原状
func (i *Ingester) Ingest(ctx context.Context, r io.Reader, opts Options) (Result, error) {
	start := time.Now()
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}

	var res Result
	if err := i.db.DB().WithContext(ctx).Model(&Delivery{}).Count(&res.Existing).Error; err != nil {
		return res, fmt.Errorf("count deliveries: %w", err)
	}
	if res.Existing > 0 && !opts.Truncate {
		res.Skipped = true
		res.Duration = time.Since(start)
		i.logger.Info("deliveries table already populated, skipping",
			zap.Int64("existing", res.Existing))
		return res, nil
	}

	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.ReuseRecord = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return res, fmt.Errorf("read csv header: %w", err)
	}
	index, err := resolveHeader(header)
	if err != nil {
		return res, err
	}

	err = i.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		if opts.Truncate && res.Existing > 0 {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Delivery{}).Error; err != nil {
				return fmt.Errorf("truncate deliveries: %w", err)
			}
		}

		batch := make([]Delivery, 0, opts.BatchSize)
		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			if err := tx.CreateInBatches(batch, opts.BatchSize).Error; err != nil {
				return fmt.Errorf("insert batch %d: %w", res.Batches+1, err)
			}
			res.Batches++
			res.Rows += len(batch)
			batch = batch[:0]
			return nil
		}

		line := 1
		for {
			fields, err := reader.Read()
			if errors.Is(err, io.EOF) {
				break
			}
			line++
			if err != nil {
				return fmt.Errorf("read csv line %d: %w", line, err)
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			batch = append(batch, row{index: index, fields: fields}.delivery())
			if len(batch) == opts.BatchSize {
				if err := flush(); err != nil {
					return err
				}
				i.logger.Debug("batch inserted", zap.Int("batch", res.Batches), zap.Int("rows", res.Rows))
			}
		}
		return flush()
	})
	res.Duration = time.Since(start)
	if err != nil {
		return Result{Existing: res.Existing, Duration: res.Duration}, err
	}

	i.logger.Info("deliveries ingested",
		zap.Int("rows", res.Rows),
		zap.Int("batches", res.Batches),
		zap.Duration("duration", res.Duration))
	return res, nil
}

// resolveHeader 建立列名到下标的映射，列名忽略大小写与首尾空白
func resolveHeader(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return index, nil
}
