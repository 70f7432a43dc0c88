package logger

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

var (
	errorCount        int64
	warnCount         int64
	fetchedDays       int64
	missingDays       int64
	fetchedBytes      int64
	cacheHits         int64
	cacheMisses       int64
	cacheWriteErrors  int64
	mergeCycles       int64
	archiveUploads    int64
	archiveUploadSize int64
)

func recordWarn(string) {
	atomic.AddInt64(&warnCount, 1)
}

func recordError(string) {
	atomic.AddInt64(&errorCount, 1)
}

// IncrementFetchedDay records one daily bundle that yielded data along with
// its approximate payload size.
func IncrementFetchedDay(size int) {
	atomic.AddInt64(&fetchedDays, 1)
	atomic.AddInt64(&fetchedBytes, int64(size))
}

// IncrementMissingDay records one daily bundle that had no data in any
// category.
func IncrementMissingDay() {
	atomic.AddInt64(&missingDays, 1)
}

// IncrementCacheHit records a dataset served from the expiring cache.
func IncrementCacheHit() {
	atomic.AddInt64(&cacheHits, 1)
}

// IncrementCacheMiss records a dataset that had to be fetched fresh.
func IncrementCacheMiss() {
	atomic.AddInt64(&cacheMisses, 1)
}

// IncrementCacheWriteError records a tolerated cache write failure.
func IncrementCacheWriteError() {
	atomic.AddInt64(&cacheWriteErrors, 1)
}

// IncrementMergeCycle records one completed merge walk.
func IncrementMergeCycle() {
	atomic.AddInt64(&mergeCycles, 1)
}

// IncrementArchiveUpload records one parquet archive upload of the given size.
func IncrementArchiveUpload(size int64) {
	atomic.AddInt64(&archiveUploads, 1)
	atomic.AddInt64(&archiveUploadSize, size)
}

// StartReport begins periodic logging of runtime and pipeline statistics.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

func logReport(ctx context.Context, log *Log) {
	cpuPercent, _ := cpu.Percent(0, false)
	memStats, _ := mem.VirtualMemory()

	cpuPct := 0.0
	if len(cpuPercent) > 0 {
		cpuPct = cpuPercent[0]
	}
	memMB := int64(0)
	if memStats != nil {
		memMB = int64(memStats.Used) / 1024 / 1024
	}

	fields := Fields{
		"errors":              atomic.LoadInt64(&errorCount),
		"warns":               atomic.LoadInt64(&warnCount),
		"fetched_days":        atomic.LoadInt64(&fetchedDays),
		"missing_days":        atomic.LoadInt64(&missingDays),
		"fetched_bytes":       atomic.LoadInt64(&fetchedBytes),
		"cache_hits":          atomic.LoadInt64(&cacheHits),
		"cache_misses":        atomic.LoadInt64(&cacheMisses),
		"cache_write_errors":  atomic.LoadInt64(&cacheWriteErrors),
		"merge_cycles":        atomic.LoadInt64(&mergeCycles),
		"archive_uploads":     atomic.LoadInt64(&archiveUploads),
		"archive_upload_size": atomic.LoadInt64(&archiveUploadSize),
		"goroutines":          runtime.NumGoroutine(),
		"cpu_percent":         cpuPct,
		"memory_mb":           memMB,
	}

	log.WithComponent("report").WithFields(fields).Info("runtime report")

	data := []cwtypes.MetricDatum{
		{MetricName: aws.String("CPUPercent"), Unit: cwtypes.StandardUnitPercent, Value: aws.Float64(cpuPct)},
		{MetricName: aws.String("MemoryMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(memMB))},
		{MetricName: aws.String("Errors"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&errorCount)))},
		{MetricName: aws.String("Warns"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&warnCount)))},
		{MetricName: aws.String("FetchedDays"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&fetchedDays)))},
		{MetricName: aws.String("MissingDays"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&missingDays)))},
		{MetricName: aws.String("CacheHits"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&cacheHits)))},
		{MetricName: aws.String("CacheMisses"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&cacheMisses)))},
		{MetricName: aws.String("CacheWriteErrors"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&cacheWriteErrors)))},
		{MetricName: aws.String("MergeCycles"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&mergeCycles)))},
		{MetricName: aws.String("ArchiveUploads"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&archiveUploads)))},
	}

	publishMetrics(ctx, data)
}
