package store_test

import (
	"testing"

	"github.com/gridbook/gridbook/store"
	"github.com/gridbook/gridbook/store/storetest"
)

func TestMemory(t *testing.T) {
	storetest.Run(t, store.NewMemory())
}
