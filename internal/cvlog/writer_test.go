package cvlog

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/spoofwatch/internal/spoof"
)

func TestWriterAppendsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "SNR_PRN_VALUE.csv")
	at := time.Date(2026, 10, 19, 9, 5, 3, 0, time.UTC)

	w, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, w.Append(spoof.CVRecord{CoefficientOfVariation: 7.5, Time: at}))
	require.NoError(t, w.Append(spoof.CVRecord{CoefficientOfVariation: math.NaN(), Time: at.Add(time.Second)}))
	assert.Equal(t, uint64(2), w.Rows())
	require.NoError(t, w.Close())

	w, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, w.Append(spoof.CVRecord{CoefficientOfVariation: 12.04, Time: at.Add(2 * time.Second)}))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "7.5,09:05:03\n,09:05:04\n12.04,09:05:05\n", string(data))
}

func TestOpenFailsOnMissingDirectory(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope", "cv.csv"))
	assert.Error(t, err)
}
