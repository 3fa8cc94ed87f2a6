package collection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForTitle(t *testing.T) {
	tests := map[string]struct {
		title string
		want  string
	}{
		"sentinel-1 grd":   {"S1A_IW_GRDH_1SDV_20240101T000000", "sentinel-1-grd"},
		"sentinel-1 slc":   {"S1B_IW_SLC__1SDV_20240101T000000", "sentinel-1-slc"},
		"sentinel-2 l1c":   {"S2A_MSIL1C_20240101T000000", "sentinel-2-l1c"},
		"sentinel-2 l2a":   {"S2B_MSIL2A_20240101T000000", "sentinel-2-l2a"},
		"sentinel-3 olci":  {"S3A_OL_1_EFR____20240101T000000", "sentinel-3-olci-l1b"},
		"sentinel-3 syn":   {"S3B_SY_2_VG1____20240701T000000", "sentinel-3-syn-l2"},
		"sentinel-5p offl": {"S5P_OFFL_L2__NO2____20240101T000000", "sentinel-5p-l2"},
		"sentinel-5p nrti": {"S5P_NRTI_L1_RA_BD1_20240101T000000", "sentinel-5p-l1"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ForTitle(tc.title)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestForTitleUnknown(t *testing.T) {
	_, err := ForTitle("LC08_L1TP_date_stuff")
	assert.Error(t, err)
}

func TestPlatform(t *testing.T) {
	assert.Equal(t, "s2", Platform("S2A_MSIL2A_20240101T000000"))
	assert.Equal(t, "s5", Platform("S5P_OFFL_L2__NO2____x"))
	assert.Equal(t, "", Platform("S"))
}

func TestManifestFiles(t *testing.T) {
	files, err := ManifestFiles("s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"manifest.safe"}, files)

	files, err = ManifestFiles("s5")
	require.NoError(t, err)
	assert.Empty(t, files)

	_, err = ManifestFiles("s9")
	assert.Error(t, err)
}
