package adapter

import (
	"fmt"
	"strings"

	"github.com/shakram02/go-mcp-db-gateway/internal/result"
)

// DocOps lists the supported document operations.
var DocOps = []result.DocOp{
	result.OpFind,
	result.OpInsertOne,
	result.OpInsertMany,
	result.OpUpdateOne,
	result.OpDeleteOne,
	result.OpAggregate,
}

// ParseDocOp accepts the canonical camelCase names plus their dashed and
// lower-case spellings (insert-one, insertone). Anything else is an error.
func ParseDocOp(s string) (result.DocOp, error) {
	norm := strings.ToLower(strings.NewReplacer("-", "", "_", "").Replace(strings.TrimSpace(s)))
	for _, op := range DocOps {
		if strings.ToLower(string(op)) == norm {
			return op, nil
		}
	}
	return "", fmt.Errorf("unsupported operation %q", s)
}

// DocOpKind tells reads from writes for a document operation.
func DocOpKind(op result.DocOp) result.Kind {
	switch op {
	case result.OpFind, result.OpAggregate:
		return result.Read
	case result.OpInsertOne, result.OpInsertMany, result.OpUpdateOne, result.OpDeleteOne:
		return result.Write
	}
	return result.Write
}
