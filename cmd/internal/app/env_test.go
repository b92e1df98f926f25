package app

import (
	"testing"
	"time"
)

func TestEnvString(t *testing.T) {
	t.Setenv("WARDEN_TEST_STR", "  hello  ")
	if got := EnvString("WARDEN_TEST_STR", "fallback"); got != "hello" {
		t.Fatalf("EnvString = %q, want %q", got, "hello")
	}
	if got := EnvString("WARDEN_TEST_STR_MISSING", "fallback"); got != "fallback" {
		t.Fatalf("EnvString missing = %q, want fallback", got)
	}
}

func TestEnvStringList(t *testing.T) {
	t.Setenv("WARDEN_TEST_LIST", "a, b ,,c")
	got := EnvStringList("WARDEN_TEST_LIST", nil)
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("EnvStringList = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("EnvStringList[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestEnvBool(t *testing.T) {
	cases := []struct {
		raw  string
		def  bool
		want bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"false", true, false},
		{"0", true, false},
		{"garbage", true, true},
		{"", false, false},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			t.Setenv("WARDEN_TEST_BOOL", tc.raw)
			if got := EnvBool("WARDEN_TEST_BOOL", tc.def); got != tc.want {
				t.Fatalf("EnvBool(%q, %v) = %v, want %v", tc.raw, tc.def, got, tc.want)
			}
		})
	}
}

func TestEnvInt(t *testing.T) {
	t.Setenv("WARDEN_TEST_INT", "42")
	if got := EnvInt("WARDEN_TEST_INT", 7); got != 42 {
		t.Fatalf("EnvInt = %d, want 42", got)
	}

	t.Setenv("WARDEN_TEST_INT", "not-a-number")
	if got := EnvInt("WARDEN_TEST_INT", 7); got != 7 {
		t.Fatalf("EnvInt invalid = %d, want fallback 7", got)
	}
}

func TestEnvDuration(t *testing.T) {
	t.Setenv("WARDEN_TEST_DUR", "150ms")
	if got := EnvDuration("WARDEN_TEST_DUR", time.Second); got != 150*time.Millisecond {
		t.Fatalf("EnvDuration = %v, want 150ms", got)
	}

	t.Setenv("WARDEN_TEST_DUR", "soon")
	if got := EnvDuration("WARDEN_TEST_DUR", time.Second); got != time.Second {
		t.Fatalf("EnvDuration invalid = %v, want fallback 1s", got)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	if cfg.HTTPAddr != "0.0.0.0:8080" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.DBSchema != "warden" {
		t.Fatalf("DBSchema = %q", cfg.DBSchema)
	}
	if cfg.BatchCap != 50 || cfg.DetailCap != 25 || cfg.PageSize != 10 {
		t.Fatalf("caps = %d/%d/%d", cfg.BatchCap, cfg.DetailCap, cfg.PageSize)
	}
	if cfg.AdmissionSweepEvery != 5*time.Minute {
		t.Fatalf("AdmissionSweepEvery = %v", cfg.AdmissionSweepEvery)
	}
}
