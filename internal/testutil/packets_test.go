package testutil

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPacketBuilders(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []byte{1, 2, 0, 255, 0, 0}, WARLS(Group{Index: 0, R: 255}))
	assert.Equal(t, []byte{2, 2, 1, 2, 3}, DRGB(1, 2, 3))
	assert.Equal(t, []byte{4, 2, 0x01, 0x02, 9}, DNRGB(0x0102, 9))

	ddp := DDP(1, 2, 3)
	assert.Len(t, ddp, 13)
	assert.Equal(t, byte(0x40), ddp[0]&0xC0)
	assert.Equal(t, []byte{0, 3}, ddp[8:10])
	assert.Equal(t, []byte{1, 2, 3}, ddp[10:])
}

func TestHTTPHelpers(t *testing.T) {
	t.Parallel()

	req := NewTestRequest(http.MethodGet, "/json")
	assert.Equal(t, "/json", req.URL.Path)

	rec := NewTestRecorder()
	rec.WriteHeader(http.StatusTeapot)
	AssertStatusCode(t, rec.Code, http.StatusTeapot)
}
