package sqlstore_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/zephyrtronium/toothy/store"
	"github.com/zephyrtronium/toothy/store/sqlstore"
	"github.com/zephyrtronium/toothy/store/storetest"
)

var dbcount atomic.Uint64

func testConn() *sqlitex.Pool {
	k := dbcount.Add(1)
	pool, err := sqlitex.NewPool(fmt.Sprintf("file:%d.db?mode=memory&cache=shared", k), sqlitex.PoolOptions{Flags: sqlite.OpenReadWrite | sqlite.OpenCreate | sqlite.OpenMemory | sqlite.OpenSharedCache | sqlite.OpenURI})
	if err != nil {
		panic(err)
	}
	return pool
}

func TestStore(t *testing.T) {
	storetest.Test(context.Background(), t, func(ctx context.Context) store.Store {
		db := testConn()
		if err := sqlstore.Init(ctx, db); err != nil {
			t.Fatal(err)
		}
		s, err := sqlstore.Open(ctx, db)
		if err != nil {
			t.Fatal(err)
		}
		return s
	})
}

func TestInitTwice(t *testing.T) {
	ctx := context.Background()
	db := testConn()
	defer db.Close()
	if err := sqlstore.Init(ctx, db); err != nil {
		t.Fatal(err)
	}
	if err := sqlstore.Init(ctx, db); err != nil {
		t.Errorf("couldn't initialize an initialized store: %v", err)
	}
}

func TestInitConn(t *testing.T) {
	ctx := context.Background()
	db := testConn()
	defer db.Close()
	conn, err := db.Take(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Put(conn)
	if err := sqlstore.Init(ctx, conn); err != nil {
		t.Errorf("couldn't initialize from a single connection: %v", err)
	}
}
