package contacts

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/matheus3301/mailcount/internal/notify"
	"github.com/matheus3301/mailcount/internal/store"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "mail.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestImportPages(t *testing.T) {
	db := testDB(t)
	d := notify.NewDispatcher()
	ch, unsub := d.Subscribe("contacts.", 4)
	defer unsub()

	im := NewImporter(db, d, nil)

	res, err := im.Import(&Listing{Total: 3, Contacts: []Contact{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}, {Name: "no id"}}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Imported != 2 || res.Stored != 2 || !res.HasMore {
		t.Errorf("first page = %+v, want 2 imported, has more", res)
	}

	res, err = im.Import(&Listing{Total: 3, Contacts: []Contact{{ID: "c", Name: "C"}}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Stored != 3 || res.HasMore {
		t.Errorf("second page = %+v, want 3 stored, no more", res)
	}

	if v, _ := db.Checkpoint("contacts_total"); v != "3" {
		t.Errorf("total checkpoint = %q, want 3", v)
	}

	select {
	case evt := <-ch:
		if evt.Kind != notify.KindContactsImported {
			t.Errorf("kind = %q, want %q", evt.Kind, notify.KindContactsImported)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for contacts.imported")
	}
}

func TestImportEmptyPage(t *testing.T) {
	db := testDB(t)
	res, err := NewImporter(db, nil, nil).Import(&Listing{Total: 42})
	if err != nil {
		t.Fatal(err)
	}
	if res.Imported != 0 || res.Total != 42 || !res.HasMore {
		t.Errorf("result = %+v, want nothing imported of 42", res)
	}
}

func TestServerTotal(t *testing.T) {
	db := testDB(t)
	im := NewImporter(db, nil, nil)

	if n, err := im.ServerTotal(); err != nil || n != 0 {
		t.Fatalf("ServerTotal before import = %d, %v; want 0", n, err)
	}
	if _, err := im.Import(&Listing{Total: 7, Contacts: []Contact{{ID: "a", Name: "A"}}}); err != nil {
		t.Fatal(err)
	}
	if n, err := im.ServerTotal(); err != nil || n != 7 {
		t.Errorf("ServerTotal = %d, %v; want 7", n, err)
	}
}
