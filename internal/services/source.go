package services

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/Lllllllleong/bankguaranteeflow/internal/config"
	"github.com/Lllllllleong/bankguaranteeflow/internal/models"
)

// BucketSource turns the letters found in the source bucket into documents to process.
type BucketSource struct {
	lister FileLister
	source config.SourceConfig
}

func NewBucketSource(lister FileLister, cfg *config.Config) *BucketSource {
	return &BucketSource{lister: lister, source: cfg.Source}
}

// Documents lists the source bucket and returns one document per key, using the key as record
// id. position selects a single key when set.
func (b *BucketSource) Documents(ctx context.Context, position *int) ([]models.DocumentContractState, error) {
	keys, err := b.lister.ListFiles(ctx, b.source.Bucket, b.source.Prefix, b.source.Extension, position)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list source documents")
	}
	docs := make([]models.DocumentContractState, 0, len(keys))
	for _, key := range keys {
		docs = append(docs, models.DocumentContractState{
			RecordID:     key,
			Key:          key,
			DocumentType: models.DocumentTypeBankGuarantee,
			Status:       models.StatusUnprocessed,
		})
	}
	return docs, nil
}
