package catalog

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateJSON(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2001-09-11"`), &d))
	assert.Equal(t, NewDate(2001, time.September, 11), d)

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2001-09-11"`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`20010911`), &d))
	assert.Error(t, json.Unmarshal([]byte(`"2001-13-01"`), &d))
}

func TestDateScan(t *testing.T) {
	tests := []struct {
		name string
		src  interface{}
	}{
		{"time", time.Date(1999, time.December, 31, 0, 0, 0, 0, time.FixedZone("EST", -5*3600))},
		{"string", "1999-12-31"},
		{"bytes", []byte("1999-12-31T00:00:00Z")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			require.NoError(t, d.Scan(tt.src))
			assert.Equal(t, "1999-12-31", d.String())
		})
	}

	var d Date
	assert.Error(t, d.Scan(42))
}
