package persistence_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brepkit/topogo/codec"
	"github.com/brepkit/topogo/persistence"
	"github.com/brepkit/topogo/registry"
)

func sampleRecords() []registry.Record {
	hash := uint64(4242)
	dir := [3]float64{0, 0, 1}
	return []registry.Record{
		{
			ID:             "ref-1",
			Kind:           "Face",
			OriginalHash:   101,
			CurrentHash:    &hash,
			ProvenancePath: []string{"Pocket001", "Fillet002"},
			OwnerOperation: "Pocket001",
			LastResolved:   true,
			Descriptor: registry.DescriptorRecord{
				Center:      [3]float64{25, 25, 0},
				Direction:   &dir,
				Extent:      314.16,
				PrimaryType: "cylinder",
			},
		},
		{
			ID:             "ref-2",
			Kind:           "Vertex",
			OriginalHash:   202,
			ProvenancePath: []string{},
			OwnerOperation: "Sketch003",
			Descriptor: registry.DescriptorRecord{
				Center: [3]float64{1, 2, 3},
			},
		},
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	codecs := []codec.Codec{codec.JSON{}, codec.GoJSON{}}
	compressions := []persistence.Compression{
		persistence.CompressionNone,
		persistence.CompressionZstd,
		persistence.CompressionLZ4,
	}

	for _, c := range codecs {
		for _, comp := range compressions {
			t.Run(c.Name()+"/"+comp.String(), func(t *testing.T) {
				var buf bytes.Buffer
				require.NoError(t, persistence.Write(&buf, sampleRecords(), c, comp))

				got, err := persistence.Read(&buf)
				require.NoError(t, err)
				assert.Equal(t, sampleRecords(), got)
			})
		}
	}
}

func TestSnapshotNilOptionalFieldsSurvive(t *testing.T) {
	records := []registry.Record{{
		ID:             "ref-1",
		Kind:           "Edge",
		ProvenancePath: []string{},
		Descriptor: registry.DescriptorRecord{
			Center: [3]float64{0, 0, 0},
		},
	}}

	var buf bytes.Buffer
	require.NoError(t, persistence.Write(&buf, records, nil, persistence.CompressionNone))

	got, err := persistence.Read(&buf)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].CurrentHash)
	assert.Nil(t, got[0].Descriptor.Direction)
}

func TestSnapshotReadRejectsCorruption(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, persistence.Write(&buf, sampleRecords(), codec.JSON{}, persistence.CompressionZstd))
	data := buf.Bytes()

	t.Run("bad magic", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[0] = 'X'
		_, err := persistence.Read(bytes.NewReader(bad))
		assert.ErrorIs(t, err, persistence.ErrInvalidMagic)
	})

	t.Run("unsupported version", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[4] = 0xFF
		_, err := persistence.Read(bytes.NewReader(bad))
		assert.ErrorIs(t, err, persistence.ErrUnsupportedVersion)
	})

	t.Run("flipped payload byte fails the checksum", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[len(bad)-1] ^= 0xFF
		_, err := persistence.Read(bytes.NewReader(bad))
		var mismatch *persistence.ChecksumMismatchError
		assert.ErrorAs(t, err, &mismatch)
	})

	t.Run("truncated payload", func(t *testing.T) {
		_, err := persistence.Read(bytes.NewReader(data[:len(data)-3]))
		assert.Error(t, err)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := persistence.Read(bytes.NewReader(nil))
		assert.Error(t, err)
	})
}

func TestSnapshotUnknownCodecName(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, persistence.Write(&buf, nil, codec.JSON{}, persistence.CompressionNone))
	data := buf.Bytes()

	// Overwrite the stored codec name "json" in place.
	copy(data[9:13], "zzzz")
	_, err := persistence.Read(bytes.NewReader(data))
	assert.ErrorIs(t, err, persistence.ErrUnknownCodec)
}

func TestWriteUnknownCompression(t *testing.T) {
	var buf bytes.Buffer
	err := persistence.Write(&buf, nil, codec.JSON{}, persistence.Compression(9))
	assert.ErrorIs(t, err, persistence.ErrUnknownCompression)
}
