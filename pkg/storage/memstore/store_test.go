package memstore_test

import (
	"testing"

	"github.com/hireflow/careermem-go/pkg/storage/memstore"
	"github.com/hireflow/careermem-go/pkg/storage/storagetest"
)

func TestStoreConformance(t *testing.T) {
	store := memstore.New()
	defer func() { _ = store.Close() }()

	storagetest.Run(t, store)
}
