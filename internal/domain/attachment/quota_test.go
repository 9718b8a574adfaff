package attachment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTables map[string]int64

func (f fakeTables) IDForTable(_ context.Context, table string) (int64, error) {
	id, ok := f[table]
	if !ok {
		return 0, errors.New("no such table")
	}
	return id, nil
}

func (f fakeTables) LookupID(ctx context.Context, table string) (int64, error) {
	return f.IDForTable(ctx, table)
}

func TestQuota_ResolveWithoutOverride(t *testing.T) {
	q := Quota{Default: 10, PerContent: map[int64]int64{}}
	for _, consumed := range []int64{0, 1, 9, 10, 1 << 20} {
		assert.Equal(t, int64(10), q.Resolve(7, consumed))
	}
}

func TestQuota_OverrideIgnoresDefault(t *testing.T) {
	cases := []struct {
		name     string
		def      int64
		override int64
	}{
		{"unlimited default, limited override", Unlimited, 10},
		{"override larger than default", 10, 20},
		{"override smaller than default", 20, 5},
		{"unlimited override", 10, Unlimited},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := Quota{Default: tc.def, PerContent: map[int64]int64{3: tc.override}}
			for _, consumed := range []int64{0, 4, 100} {
				assert.Equal(t, tc.override, q.Resolve(3, consumed))
			}
		})
	}
}

func TestQuota_UnlimitedSentinel(t *testing.T) {
	q := Quota{Default: Unlimited}
	assert.Equal(t, Unlimited, q.Resolve(1, 0))
	assert.NoError(t, q.Check("attachment", 1, 1<<40, 0))
}

func TestQuota_Check(t *testing.T) {
	q := Quota{Default: 10}

	assert.NoError(t, q.Check("attachment", 1, 4, 0))
	assert.NoError(t, q.Check("attachment", 1, 10, 0))

	err := q.Check("attachment", 1, 11, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "attachment", verr.Field)
	assert.Equal(t, int64(11), verr.Size)
	assert.Equal(t, int64(10), verr.Max)
}

func TestQuota_PhotosOverrideScenario(t *testing.T) {
	q, err := BuildQuota(context.Background(), fakeTables{"photos": 5, "article_article": 6}, Unlimited, map[string]int64{"photos": 5})
	require.NoError(t, err)

	assert.ErrorIs(t, q.Check("attachment", 5, 6, 0), ErrQuotaExceeded)
	assert.NoError(t, q.Check("attachment", 6, 6, 0))
	assert.NoError(t, q.Check("attachment", 6, 1<<30, 0))
}

func TestBuildQuota_UnknownTable(t *testing.T) {
	_, err := BuildQuota(context.Background(), fakeTables{}, 10, map[string]int64{"missing": 1})
	assert.Error(t, err)
}
