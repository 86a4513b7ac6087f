package sqlstore

import "testing"

func TestBindNumbersPlaceholders(t *testing.T) {
	numbered := &Store{dialect: Dialect{Numbered: true}}
	if got := numbered.bind(`SELECT a FROM t WHERE b=? AND c IN (SELECT c FROM u WHERE d=?)`); got != `SELECT a FROM t WHERE b=$1 AND c IN (SELECT c FROM u WHERE d=$2)` {
		t.Fatalf("bind = %q", got)
	}
	plain := &Store{}
	if got := plain.bind(`x=?`); got != `x=?` {
		t.Fatalf("bind = %q", got)
	}
}

func TestListCodec(t *testing.T) {
	s, err := encodeList(nil)
	if err != nil || s != "[]" {
		t.Fatalf("encode nil = %q %v", s, err)
	}
	out, err := decodeList(`["1.A","2.A"]`)
	if err != nil || len(out) != 2 || out[1] != "2.A" {
		t.Fatalf("decode = %v %v", out, err)
	}
	if out, _ := decodeList("[]"); out != nil {
		t.Fatalf("empty list should decode to nil")
	}
	if _, err := decodeList("{"); err == nil {
		t.Fatalf("expected decode error")
	}
	if !fromNanos(nanos(fromNanos(0))).IsZero() {
		t.Fatalf("zero time not preserved")
	}
}
