package errors

import (
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shakram02/go-mcp-db-gateway/internal/backend"
)

func TestE_ErrorAndUnwrap(t *testing.T) {
	err := Connection(backend.MySQL, "ping failed", io.ErrUnexpectedEOF)

	assert.Equal(t, "mysql connection error: ping failed: unexpected EOF", err.Error())
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	wrapped := fmt.Errorf("acquire: %w", err)
	assert.True(t, IsKind(wrapped, ConnectionFailed))
	assert.False(t, IsKind(wrapped, QueryFailed))
	assert.Equal(t, ConnectionFailed, KindOf(wrapped))
}

func TestE_NoCause(t *testing.T) {
	err := Invalid(backend.MongoDB, `unsupported operation "upsertMany"`)
	assert.Equal(t, `mongodb invalid_argument error: unsupported operation "upsertMany"`, err.Error())
	assert.Equal(t, Kind(""), KindOf(io.EOF))
}
