package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContentType(t *testing.T) {
	require.Equal(t, "application/pdf", ContentType("inbound/r1/p1/quote.pdf"))
	require.Equal(t, "application/octet-stream", ContentType("inbound/r1/p1/blob"))
}
