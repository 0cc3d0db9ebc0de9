package pgtune

import (
	"testing"

	"github.com/flanksource/pg-autotune/pkg/utils"
	"github.com/stretchr/testify/require"
)

func TestMakeDisk_KnownTag(t *testing.T) {
	d, err := MakeDisk(DiskSpec{Tag: "nvme_pcie_v4"})
	require.NoError(t, err)
	require.Equal(t, "nvme_pcie_v4", d.Tag)
	require.Equal(t, 600_000.0, d.RandomIOPS)
	require.Equal(t, 5_000.0, d.ThroughputMiBps)
}

func TestMakeDisk_ExplicitPairWins(t *testing.T) {
	d, err := MakeDisk(DiskSpec{Tag: "sata_ssd", RandomIOPS: 1_000})
	require.NoError(t, err)
	require.Equal(t, 1_000.0, d.RandomIOPS)
	// Throughput is derived from the explicit IOPS, not the tag's table entry.
	require.InDelta(t, IOPSToThroughput(1_000), d.ThroughputMiBps, 0.001)
}

func TestIOPSThroughputRoundTrip(t *testing.T) {
	for _, iops := range []float64{0, 1_000, 250_000, 1_200_000} {
		tput := IOPSToThroughput(iops)
		back := ThroughputToIOPS(tput)
		require.InDelta(t, iops, back, 1e-6)
	}
}

func TestIsHDDClass(t *testing.T) {
	hdd, err := MakeDisk(DiskSpec{Tag: "hdd_v2"})
	require.NoError(t, err)
	require.True(t, hdd.IsHDDClass())

	ssd, err := MakeDisk(DiskSpec{Tag: "sas_ssd"})
	require.NoError(t, err)
	require.False(t, ssd.IsHDDClass())
}

func TestMeanOfTags_BlendsBetweenExtremes(t *testing.T) {
	blend, err := MeanOfTags([]string{"hdd_v1", "nvme_pcie_v5"}, 1)
	require.NoError(t, err)
	require.Greater(t, blend.RandomIOPS, 150.0)
	require.Less(t, blend.RandomIOPS, 1_200_000.0)
}

func TestMeanOfTags_UnknownTagFails(t *testing.T) {
	_, err := MeanOfTags([]string{"sata_ssd", "UNOBTANIUM"}, 1)
	require.Error(t, err)
	require.IsType(t, &InvalidDiskSpecError{}, err)
}

func TestMeanOfTags_EmptyFails(t *testing.T) {
	_, err := MeanOfTags(nil, 1)
	require.Error(t, err)
}

func TestMeanOfTags_AgreesWithGeneralizedMeanAtP1(t *testing.T) {
	blend, err := MeanOfTags([]string{"hdd_v1", "hdd_v2", "san_v1"}, 1)
	require.NoError(t, err)
	want := utils.GeneralizedMean([]float64{150, 250, 5_000}, 1)
	require.InDelta(t, want, blend.RandomIOPS, 1e-6)
}
