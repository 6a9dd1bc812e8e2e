// Command coupon-ingest loads promotional code dumps into the coupons table.
// A code counts as valid when it appears in at least two of the three dump
// files; the dumps are large enough that membership is tracked with bloom
// filters instead of exact sets.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/bits"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/ha165/orderdesk/internal/storage/postgres"
)

const (
	bloomCapacity = 120_000_000
	bloomFPR      = 0.001
	dumpCount     = 3
	progressEvery = 10_000_000
	minCodeLen    = 8
	maxCodeLen    = 10
	upsertBatch   = 500
)

// codeRule is the discount applied to a recognized promotional code.
type codeRule struct {
	discountType string
	value        string
}

var codeRules = map[string]codeRule{
	"FIFTYOFF": {discountType: "percentage", value: "50"},
	"SIXTYOFF": {discountType: "percentage", value: "60"},
	"GNULINUX": {discountType: "percentage", value: "15"},
	"OVER9000": {discountType: "fixed", value: "9"},
	"HAPPYHRS": {discountType: "percentage", value: "18"},
}

var defaultRule = codeRule{discountType: "percentage", value: "10"}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing couponbaseN.gz files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("coupon ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("coupon ingest completed successfully")
}

// dump is one gzip-compressed code file plus its pass 1 bloom filter.
type dump struct {
	idx    int
	path   string
	filter *bloom.BloomFilter
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	dumps := make([]*dump, dumpCount)
	for i := range dumpCount {
		d := &dump{idx: i, path: filepath.Join(dataDir, fmt.Sprintf("couponbase%d.gz", i+1))}
		if _, err := os.Stat(d.path); err != nil {
			return errors.Wrapf(err, "check file %s", d.path)
		}
		dumps[i] = d
	}

	slog.Info("pass 1: building bloom filters", slog.Int("files", dumpCount))

	g, gctx := errgroup.WithContext(ctx)
	for _, d := range dumps {
		g.Go(func() error { return d.buildFilter(gctx) })
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	slog.Info("pass 2: finding candidate codes")

	validCodes, err := crossMatch(ctx, dumps)
	if err != nil {
		return errors.Wrap(err, "cross-match codes")
	}

	slog.Info("valid codes found", slog.Int("count", len(validCodes)))

	if len(validCodes) == 0 {
		slog.Info("no valid codes to insert")
		return nil
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := writeCoupons(ctx, pool, validCodes); err != nil {
		return errors.Wrap(err, "write coupons to database")
	}

	return nil
}

// buildFilter streams the dump once and records every well-formed code.
func (d *dump) buildFilter(ctx context.Context) error {
	filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	var seen uint64

	err := d.scan(ctx, func(code string) {
		filter.AddString(code)
		seen++
		if seen%progressEvery == 0 {
			slog.Info("pass 1 progress", slog.Int("file", d.idx+1), slog.Uint64("codes", seen))
		}
	})
	if err != nil {
		return errors.Wrapf(err, "build filter for file %d", d.idx+1)
	}

	slog.Info("pass 1 complete", slog.Int("file", d.idx+1), slog.Uint64("total_codes", seen))
	d.filter = filter
	return nil
}

// crossMatch streams every dump a second time, testing each code against the
// other dumps' filters. A code is kept when the merged per-file hit mask shows
// it in 2 or more files.
func crossMatch(ctx context.Context, dumps []*dump) ([]string, error) {
	hits := make([]map[string]uint, len(dumps))

	g, gctx := errgroup.WithContext(ctx)
	for _, d := range dumps {
		g.Go(func() error {
			found, err := d.matchAgainst(gctx, dumps)
			if err != nil {
				return err
			}
			hits[d.idx] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]uint)
	for _, found := range hits {
		for code, mask := range found {
			merged[code] |= mask
		}
	}

	var valid []string
	for code, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			valid = append(valid, code)
		}
	}
	return valid, nil
}

func (d *dump) matchAgainst(ctx context.Context, dumps []*dump) (map[string]uint, error) {
	found := make(map[string]uint)
	bit := uint(1) << uint(d.idx)
	var seen uint64

	err := d.scan(ctx, func(code string) {
		seen++
		if seen%progressEvery == 0 {
			slog.Info("pass 2 progress", slog.Int("file", d.idx+1), slog.Uint64("codes", seen))
		}
		for _, other := range dumps {
			if other.idx == d.idx {
				continue
			}
			if other.filter.TestString(code) {
				found[code] |= bit
				break
			}
		}
	})
	if err != nil {
		return nil, errors.Wrapf(err, "scan file %d for candidates", d.idx+1)
	}

	slog.Info("pass 2 complete",
		slog.Int("file", d.idx+1),
		slog.Uint64("total_codes", seen),
		slog.Int("candidates", len(found)),
	)
	return found, nil
}

// scan streams the gzip dump line by line, passing codes of acceptable length
// to fn.
func (d *dump) scan(ctx context.Context, fn func(code string)) error {
	f, err := os.Open(d.path)
	if err != nil {
		return errors.Wrapf(err, "open %s", d.path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", d.path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		code := scanner.Text()
		if len(code) >= minCodeLen && len(code) <= maxCodeLen {
			fn(code)
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", d.path)
	}
	return nil
}

// writeCoupons upserts the valid codes in batches over a single round trip
// per batch.
func writeCoupons(ctx context.Context, pool *pgxpool.Pool, codes []string) error {
	slog.Info("writing coupons to database", slog.Int("count", len(codes)))

	const upsert = `
		INSERT INTO coupons (code, discount_type, value, active) VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (code) DO UPDATE SET discount_type = $2, value = $3, active = TRUE`

	written := 0
	for start := 0; start < len(codes); start += upsertBatch {
		end := min(start+upsertBatch, len(codes))

		var batch pgx.Batch
		for _, code := range codes[start:end] {
			rule, ok := codeRules[code]
			if !ok {
				rule = defaultRule
			}
			value, err := decimal.NewFromString(rule.value)
			if err != nil {
				return errors.Wrapf(err, "parse decimal value for code %s", code)
			}
			batch.Queue(upsert, code, rule.discountType, value)
		}

		if err := pool.SendBatch(ctx, &batch).Close(); err != nil {
			return errors.Wrapf(err, "upsert coupon batch at %d", start)
		}

		written = end
		slog.Info("write progress", slog.Int("written", written), slog.Int("total", len(codes)))
	}

	return nil
}
