package probe

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Вывод ffprobe для ролика 640x480 без аудио.
const sampleClip = `{
  "streams": [
    {
      "index": 0,
      "codec_name": "h264",
      "codec_type": "video",
      "width": 640,
      "height": 480,
      "r_frame_rate": "1199/50",
      "avg_frame_rate": "1199/50",
      "duration": "7.547957",
      "bit_rate": "303518",
      "nb_frames": "181"
    }
  ],
  "format": {
    "filename": "clip.mp4",
    "duration": "7.548000",
    "bit_rate": "310000"
  }
}`

const sampleWithAudio = `{
  "streams": [
    {"codec_type": "audio", "codec_name": "aac"},
    {"codec_type": "video", "width": 1920, "height": 1080, "r_frame_rate": "24000/1001",
     "nb_frames": "1440", "bit_rate": "5000000"},
    {"codec_type": "video", "width": 320, "height": 240, "r_frame_rate": "1/1",
     "nb_frames": "1", "bit_rate": "1"}
  ],
  "format": {}
}`

func TestParseJSON_Clip(t *testing.T) {
	m, err := ParseJSON([]byte(sampleClip))
	require.NoError(t, err)

	assert.Equal(t, 640, m.Width)
	assert.Equal(t, 480, m.Height)
	assert.Equal(t, "1199/50", m.FrameRateRaw)
	assert.Equal(t, 23.98, m.FrameRate)
	assert.Equal(t, "23.98", m.FrameRateArg())
	assert.Equal(t, int64(181), m.FrameCount)
	assert.False(t, m.FrameCountEstimated)
	assert.Equal(t, int64(303518), m.BitRate)
	assert.False(t, m.HasAudio)
}

func TestParseJSON_FirstVideoStreamAndAudio(t *testing.T) {
	m, err := ParseJSON([]byte(sampleWithAudio))
	require.NoError(t, err)

	assert.True(t, m.HasAudio)
	assert.Equal(t, 1920, m.Width)
	assert.Equal(t, 23.98, m.FrameRate)
	assert.Equal(t, int64(1440), m.FrameCount)
	assert.Equal(t, int64(5000000), m.BitRate)
}

func TestParseJSON_NoVideoStream(t *testing.T) {
	_, err := ParseJSON([]byte(`{"streams":[{"codec_type":"audio"}],"format":{}}`))

	var pe *ProbeError
	require.ErrorAs(t, err, &pe)
	assert.ErrorIs(t, err, ErrNoVideoStream)
}

func TestParseJSON_InvalidJSON(t *testing.T) {
	_, err := ParseJSON([]byte(`not json`))

	var pe *ProbeError
	assert.ErrorAs(t, err, &pe)
}

func TestParseJSON_FrameCountFallback(t *testing.T) {
	data := `{"streams":[{"codec_type":"video","width":2,"height":2,"r_frame_rate":"25/1",
	  "bit_rate":"1000"}],"format":{"duration":"10.0"}}`

	m, err := ParseJSON([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, int64(250), m.FrameCount)
	assert.True(t, m.FrameCountEstimated)
	assert.Equal(t, "25.00", m.FrameRateArg())
}

func TestParseJSON_MissingFields(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		field string
	}{
		{
			name:  "no nb_frames and no duration",
			data:  `{"streams":[{"codec_type":"video","r_frame_rate":"25/1","bit_rate":"1000"}],"format":{}}`,
			field: "nb_frames",
		},
		{
			name:  "nb_frames N/A",
			data:  `{"streams":[{"codec_type":"video","r_frame_rate":"25/1","nb_frames":"N/A","bit_rate":"1000"}],"format":{}}`,
			field: "nb_frames",
		},
		{
			name:  "no bit rate anywhere",
			data:  `{"streams":[{"codec_type":"video","r_frame_rate":"25/1","nb_frames":"10"}],"format":{}}`,
			field: "bit_rate",
		},
		{
			name:  "bad frame rate",
			data:  `{"streams":[{"codec_type":"video","r_frame_rate":"0/0","nb_frames":"10","bit_rate":"1"}],"format":{}}`,
			field: "r_frame_rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJSON([]byte(tt.data))

			var me *MetadataError
			require.ErrorAs(t, err, &me)
			assert.Equal(t, tt.field, me.Field)
		})
	}
}

func TestParseJSON_BitRateFromFormat(t *testing.T) {
	data := `{"streams":[{"codec_type":"video","r_frame_rate":"30/1","nb_frames":"30"}],
	  "format":{"bit_rate":"800000"}}`

	m, err := ParseJSON([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, int64(800000), m.BitRate)
}

func TestParseRational(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"30/1", 30, false},
		{"1199/50", 23.98, false},
		{"25", 25, false},
		{"30000/1001", 30000.0 / 1001.0, false},
		{"1/0", 0, true},
		{"", 0, true},
		{"abc/1", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRational(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestProbe_MissingBinary(t *testing.T) {
	p := New("/nonexistent/ffprobe")
	_, err := p.Probe(context.Background(), "clip.mp4")

	var pe *ProbeError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "clip.mp4", pe.Path)
}
