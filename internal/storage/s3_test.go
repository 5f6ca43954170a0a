package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectKeyPreservesExtension(t *testing.T) {
	key := ObjectKey("FISPQ Acetona Rev3.PDF")
	assert.True(t, strings.HasPrefix(key, "uploads/"))
	assert.True(t, strings.HasSuffix(key, ".pdf"))
	// The original filename must not appear in the key.
	assert.NotContains(t, key, "Acetona")
}

func TestObjectKeyUnique(t *testing.T) {
	assert.NotEqual(t, ObjectKey("a.pdf"), ObjectKey("a.pdf"))
}

func TestObjectURLForms(t *testing.T) {
	aws := &Client{bucket: "fispq-docs", region: "sa-east-1"}
	assert.Equal(t, "https://fispq-docs.s3.sa-east-1.amazonaws.com/uploads/x.pdf", aws.ObjectURL("uploads/x.pdf"))

	minio := &Client{bucket: "fispq-docs", region: "us-east-1", endpoint: "http://localhost:9000/"}
	assert.Equal(t, "http://localhost:9000/fispq-docs/uploads/x.pdf", minio.ObjectURL("uploads/x.pdf"))
}
