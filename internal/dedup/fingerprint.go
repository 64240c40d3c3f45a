package dedup

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/SmartNewbieProject/sometimes-work-helper/internal/models"
)

// Fingerprint derives the stable identity of a message from its author, text
// and timestamp. MD5 is deliberate: collision resistance against accidental
// re-delivery is the requirement, not secrecy.
func Fingerprint(m models.Message) string {
	content := fmt.Sprintf("%s_%s_%s", m.User, m.Text, m.TS)
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Filter partitions incoming batches into new vs. already-seen messages,
// consulting both the durable Store and a process-lifetime seen-set. The
// seen-set is injected so tests and callers own its lifetime.
type Filter struct {
	store  Store
	seen   *SeenSet
	logger *zap.Logger
}

func NewFilter(store Store, seen *SeenSet, logger *zap.Logger) *Filter {
	return &Filter{
		store:  store,
		seen:   seen,
		logger: logger,
	}
}

// FilterNew returns the input messages that have not been processed yet, in
// their original order, each annotated with its fingerprint.
func (f *Filter) FilterNew(ctx context.Context, messages []models.Message) []models.Message {
	fresh := make([]models.Message, 0, len(messages))
	for _, msg := range messages {
		msg.Fingerprint = Fingerprint(msg)
		if f.isProcessed(ctx, msg.Fingerprint) {
			continue
		}
		fresh = append(fresh, msg)
	}

	f.logger.Info("Filtered new messages",
		zap.Int("new", len(fresh)),
		zap.Int("total", len(messages)))
	return fresh
}

func (f *Filter) isProcessed(ctx context.Context, fingerprint string) bool {
	if f.seen.Contains(fingerprint) {
		return true
	}

	exists, err := f.store.Exists(ctx, fingerprint)
	if err != nil {
		// A store that cannot be reached must not fail the pipeline; a
		// possible duplicate proposal is the accepted trade-off.
		f.logger.Error("Dedup store lookup failed, treating as unseen",
			zap.Error(err),
			zap.String("fingerprint", fingerprint))
		return false
	}
	return exists
}

// MarkProcessed records a fingerprint in both the seen-set and the durable
// store. Store write failures are logged and dropped.
func (f *Filter) MarkProcessed(ctx context.Context, fingerprint string, messageData string) {
	f.seen.Add(fingerprint)

	now := time.Now()
	payload, err := json.Marshal(models.ProcessedRecord{
		ProcessedAt: now,
		MessageData: messageData,
		TTL:         now.Add(RetentionWindow).Unix(),
	})
	if err != nil {
		f.logger.Error("Failed to encode processed record",
			zap.Error(err),
			zap.String("fingerprint", fingerprint))
		return
	}

	if err := f.store.Record(ctx, fingerprint, payload); err != nil {
		f.logger.Error("Failed to persist processed record",
			zap.Error(err),
			zap.String("fingerprint", fingerprint))
	}
}
