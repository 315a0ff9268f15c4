package api

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestNewCodec(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{name: "", want: CodecJSON},
		{name: "json", want: CodecJSON},
		{name: "msgpack", want: CodecMsgpack},
		{name: "proto", wantErr: true},
	}
	for _, tt := range tests {
		c, err := NewCodec(tt.name)
		if tt.wantErr {
			require.Error(t, err, "codec %q", tt.name)
			continue
		}
		require.NoError(t, err)
		require.Equal(t, tt.want, c.Name())
	}
}

func TestMsgpackCodec_UsesJSONFieldNames(t *testing.T) {
	data, err := msgpackCodec{}.Marshal(&PaymentInput{From: "p1", To: "p2", Amount: 12.5})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, msgpack.Unmarshal(data, &raw))
	require.Equal(t, "p1", raw["from_participant"])
	require.Equal(t, "p2", raw["to_participant"])

	var back PaymentInput
	require.NoError(t, msgpackCodec{}.Unmarshal(data, &back))
	require.Equal(t, PaymentInput{From: "p1", To: "p2", Amount: 12.5}, back)
}

func TestCodecs_EmptyBodyLeavesMessageZero(t *testing.T) {
	for _, c := range Codecs() {
		var ref EventRef
		require.NoError(t, c.Unmarshal(nil, &ref), c.Name())
		require.Empty(t, ref.EventID)
	}
}
