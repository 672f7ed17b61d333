package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/em-foundation/jls/chunk"
	"github.com/em-foundation/jls/format"
)

func TestAnnotationRoundTripMixedStorageAndCompression(t *testing.T) {
	f := openScratch(t)
	cw := chunk.NewWriterAt(f, scratchStart)
	sig := fsrSignal()

	w, err := NewAnnotationWriter(sig, cw, format.CompressionLZ4)
	require.NoError(t, err)

	require.NoError(t, w.Write(Annotation{
		Timestamp: 100, Y: 1.5, Type: format.AnnotationUser, GroupID: 1,
		Storage: format.StorageString, Data: []byte("hello"),
	}))
	require.NoError(t, w.Write(Annotation{
		Timestamp: 200, Y: -2.5, Type: format.AnnotationVerticalMarker, GroupID: 2,
		Storage: format.StorageBinary, Data: []byte{1, 2, 3, 4},
	}))
	require.NoError(t, w.Write(Annotation{
		Timestamp: 300, Y: 0, Type: format.AnnotationText, GroupID: 1,
		Storage: format.StorageJSON, Data: []byte(`{"k":"v"}`),
	}))

	cr := chunk.NewReader(f)
	dir, _, _, err := BuildDirectory(cr, scratchStart)
	require.NoError(t, err)

	r := NewAnnotationReader(sig, cr, dir)

	var got []Annotation
	require.NoError(t, r.ReadAll(func(a Annotation) error {
		got = append(got, a)

		return nil
	}))

	require.Len(t, got, 3)
	assert.Equal(t, int64(100), got[0].Timestamp)
	assert.Equal(t, "hello\x00", string(got[0].Data))
	assert.Equal(t, int64(200), got[1].Timestamp)
	assert.Equal(t, []byte{1, 2, 3, 4}, got[1].Data)
	assert.Equal(t, int64(300), got[2].Timestamp)

	var fromMid []Annotation
	require.NoError(t, r.ReadFromTimestamp(200, func(a Annotation) error {
		fromMid = append(fromMid, a)

		return nil
	}))
	require.Len(t, fromMid, 2)
	assert.Equal(t, int64(200), fromMid[0].Timestamp)
}

func TestUserDataRoundTrip(t *testing.T) {
	f := openScratch(t)
	cw := chunk.NewWriterAt(f, scratchStart)
	sig := fsrSignal()

	w, err := NewUserDataWriter(sig, cw, format.CompressionS2)
	require.NoError(t, err)

	require.NoError(t, w.Write(UserData{Meta: 1, Storage: format.StorageBinary, Data: []byte("config-a")}))
	require.NoError(t, w.Write(UserData{Meta: 2, Storage: format.StorageString, Data: []byte("config-b")}))

	cr := chunk.NewReader(f)
	dir, _, _, err := BuildDirectory(cr, scratchStart)
	require.NoError(t, err)

	r := NewUserDataReader(sig, cr, dir)

	var got []UserData
	require.NoError(t, r.ReadAll(func(u UserData) error {
		got = append(got, u)

		return nil
	}))

	require.Len(t, got, 2)
	assert.EqualValues(t, 1, got[0].Meta)
	assert.Equal(t, []byte("config-a"), got[0].Data)
	assert.EqualValues(t, 2, got[1].Meta)
	assert.Equal(t, []byte("config-b"), got[1].Data)
}
