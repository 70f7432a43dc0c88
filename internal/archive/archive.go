// Package archive writes merged datasets to S3 as parquet for long-term
// analysis. Archival is best-effort; a failed upload never disturbs the
// serving path.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	appconfig "hodlflow/config"
	"hodlflow/logger"
	"hodlflow/models"
)

// SnapshotRecord is the parquet row layout for one snapshot observation.
// Absent metrics are written as typed nulls via pointer fields.
type SnapshotRecord struct {
	RangeKey  string   `parquet:"name=range_key, type=BYTE_ARRAY, convertedtype=UTF8"`
	Timestamp int64    `parquet:"name=timestamp, type=INT64"`
	Price     *float64 `parquet:"name=price, type=DOUBLE"`
	PumpPrice *float64 `parquet:"name=pump_price, type=DOUBLE"`
	SolPrice  *float64 `parquet:"name=sol_price, type=DOUBLE"`
	BtcPrice  *float64 `parquet:"name=btc_price, type=DOUBLE"`
	Holders   *float64 `parquet:"name=holders, type=DOUBLE"`
	Online    *float64 `parquet:"name=current_online_users, type=DOUBLE"`
	AmmToken  *float64 `parquet:"name=main_amm_v2ex_amount, type=DOUBLE"`
	AmmSol    *float64 `parquet:"name=main_amm_sol_amount, type=DOUBLE"`
}

// Uploader archives datasets to one S3 bucket.
type Uploader struct {
	cfg      *appconfig.Config
	s3Client *s3.Client
	log      *logger.Log
}

// NewUploader builds an S3-backed archiver from the storage configuration.
func NewUploader(cfg *appconfig.Config) (*Uploader, error) {
	log := logger.GetLogger()
	ctx := context.Background()

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Storage.S3.Region),
	}
	if cfg.Storage.S3.AccessKeyID != "" && cfg.Storage.S3.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.Storage.S3.AccessKeyID,
				cfg.Storage.S3.SecretAccessKey,
				"",
			),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	creds, err := awsCfg.Credentials.Retrieve(ctx)
	if err != nil || !creds.HasKeys() {
		return nil, fmt.Errorf("aws credentials not found")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.S3.Endpoint)
		}
		o.UsePathStyle = cfg.Storage.S3.PathStyle
	})

	log.WithComponent("archive").WithFields(logger.Fields{
		"bucket":     cfg.Storage.S3.Bucket,
		"region":     cfg.Storage.S3.Region,
		"endpoint":   cfg.Storage.S3.Endpoint,
		"path_style": cfg.Storage.S3.PathStyle,
	}).Info("archive uploader initialized")

	return &Uploader{cfg: cfg, s3Client: client, log: log}, nil
}

// ArchiveDataset serializes the dataset's snapshots to parquet and uploads
// them under a date-partitioned key.
func (u *Uploader) ArchiveDataset(ctx context.Context, ds *models.CachedDataset) error {
	log := u.log.WithComponent("archive").WithFields(logger.Fields{
		"range_key": ds.RangeKey,
		"snapshots": len(ds.Snapshots),
	})

	if len(ds.Snapshots) == 0 {
		log.Debug("dataset has no snapshots, skipping archive")
		return nil
	}

	data, err := u.createParquetFile(ds)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}

	key := u.objectKey(ds)
	if err := u.upload(ctx, key, data); err != nil {
		return err
	}

	logger.IncrementArchiveUpload(int64(len(data)))
	log.WithFields(logger.Fields{"s3_key": key, "file_size": len(data)}).Info("dataset archived")
	return nil
}

func (u *Uploader) objectKey(ds *models.CachedDataset) string {
	t := ds.FetchedAt.UTC()
	key := filepath.Join(
		u.cfg.Storage.S3.Prefix,
		fmt.Sprintf("date=%s", t.Format("2006-01-02")),
		fmt.Sprintf("range=%s", ds.RangeKey),
		fmt.Sprintf("snapshots_%s_%s.parquet", t.Format("20060102150405"), uuid.New().String()[:8]),
	)
	return filepath.ToSlash(key)
}

func (u *Uploader) createParquetFile(ds *models.CachedDataset) ([]byte, error) {
	fw := newMemoryFileWriter()

	pw, err := writer.NewParquetWriter(fw, new(SnapshotRecord), 4)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}

	switch u.cfg.Storage.S3.Compression {
	case "snappy":
		pw.CompressionType = parquet.CompressionCodec_SNAPPY
	case "gzip":
		pw.CompressionType = parquet.CompressionCodec_GZIP
	default:
		pw.CompressionType = parquet.CompressionCodec_UNCOMPRESSED
	}

	for i := range ds.Snapshots {
		s := &ds.Snapshots[i]
		record := SnapshotRecord{
			RangeKey:  ds.RangeKey,
			Timestamp: s.CreatedAt.Time.UnixMilli(),
			Price:     s.Price,
			PumpPrice: s.PumpPrice,
			SolPrice:  s.SOLPrice,
			BtcPrice:  s.BTCPrice,
			Holders:   s.Holders,
			Online:    s.CurrentOnlineUsers,
			AmmToken:  s.MainAmmTokenAmount,
			AmmSol:    s.MainAmmSolAmount,
		}
		if err := pw.Write(record); err != nil {
			pw.WriteStop()
			return nil, fmt.Errorf("failed to write parquet record: %w", err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("failed to finalize parquet writing: %w", err)
	}
	return fw.Bytes(), nil
}

func (u *Uploader) upload(ctx context.Context, key string, data []byte) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(u.cfg.Storage.S3.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
		Metadata: map[string]string{
			"content-type":     "parquet",
			"compression":      u.cfg.Storage.S3.Compression,
			"hodlflow-version": u.cfg.Hodlflow.Version,
		},
	}

	// Uploads outlive a cancelled request; the data is already final.
	_, err := u.s3Client.PutObject(context.WithoutCancel(ctx), input)
	if err != nil {
		return fmt.Errorf("failed to upload to S3 bucket %s: %w", u.cfg.Storage.S3.Bucket, err)
	}
	return nil
}
