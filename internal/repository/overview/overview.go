package overview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jgivc/harvestoverview/internal/common"
	"github.com/jgivc/harvestoverview/internal/entity"
	storage "github.com/jgivc/harvestoverview/internal/storage/overview"
	"github.com/redis/go-redis/v9"
)

const (
	KeyVersion1      = "v1"
	KeyVersion2      = "v2"
	KeyActiveVersion = "av" // STRING. Version holding the current overview document.
	KeyDocument      = "od" // STRING. od:ver -> yaml overview document

	KeyEmpty     = ""
	KeySeparator = ":"
)

// overviewRepository keeps the overview document in redis. Two document
// versions are kept; a save writes the standby one and switches the active
// version in the same transaction.
type overviewRepository struct {
	cl     *redis.Client
	prefix string
	log    *slog.Logger
}

func NewOverviewRepository(cl *redis.Client, prefix string, log *slog.Logger) *overviewRepository {
	return &overviewRepository{
		cl:     cl,
		prefix: prefix,
		log:    log.With(slog.String("item", "OverviewRepository"), slog.String("prefix", prefix)),
	}
}

func (r *overviewRepository) Load(ctx context.Context) (*entity.Overview, error) {
	ver, err := r.cl.Get(ctx, r.key(KeyActiveVersion)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.log.Info("Active version key is not found, start with empty overview")

			return &entity.Overview{}, nil
		}

		return nil, fmt.Errorf("cannot get active version: %w", err)
	}

	if ver != KeyVersion1 && ver != KeyVersion2 {
		return nil, fmt.Errorf("%w: unknown active version %q", common.ErrCorruptRecord, ver)
	}

	data, err := r.cl.Get(ctx, r.key(KeyDocument, ver)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: active version %s has no document", common.ErrCorruptRecord, ver)
		}

		return nil, fmt.Errorf("cannot get overview document: %w", err)
	}

	o, err := storage.Decode(data)
	if err != nil {
		r.log.Error("Cannot decode overview document", slog.String("version", ver), slog.Any("error", err))

		return nil, err
	}

	r.log.Info("Overview loaded", slog.String("version", ver), slog.Int("endpoints", len(o.Endpoints)))

	return o, nil
}

func (r *overviewRepository) Save(ctx context.Context, o *entity.Overview) error {
	data, err := storage.Encode(o)
	if err != nil {
		return err
	}

	verActive, verStandby, err := r.getVersions(ctx)
	if err != nil {
		return err
	}

	_, err = r.cl.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key(KeyDocument, verStandby), data, 0)
		pipe.Set(ctx, r.key(KeyActiveVersion), verStandby, 0)

		return nil
	})
	if err != nil {
		r.log.Error("Cannot switch to new version", slog.String("version", verStandby), slog.Any("error", err))

		return fmt.Errorf("cannot save overview document: %w", err)
	}

	r.log.Info("Overview saved", slog.String("previous_version", verActive), slog.String("version", verStandby),
		slog.Int("endpoints", len(o.Endpoints)))

	return nil
}

/*
getVersions return active and standby versions
*/
func (r *overviewRepository) getVersions(ctx context.Context) (string, string, error) {
	ver, err := r.cl.Get(ctx, r.key(KeyActiveVersion)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return KeyEmpty, KeyEmpty, fmt.Errorf("cannot get active version: %w", err)
	}

	if ver == KeyVersion1 {
		return KeyVersion1, KeyVersion2, nil
	}

	return KeyVersion2, KeyVersion1, nil
}

func (r *overviewRepository) key(keys ...string) string {
	if r.prefix == KeyEmpty {
		return strings.Join(keys, KeySeparator)
	}

	return strings.Join(append([]string{r.prefix}, keys...), KeySeparator)
}
