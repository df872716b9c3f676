package util

import "testing"

func TestEnvStr(t *testing.T) {
	t.Setenv("SW_TEST_STR", "clickhouse-2")
	if got := EnvStr("SW_TEST_STR", "fallback"); got != "clickhouse-2" {
		t.Fatalf("set: got %q", got)
	}
	if got := EnvStr("SW_TEST_STR_MISSING", "fallback"); got != "fallback" {
		t.Fatalf("unset: got %q", got)
	}
}

func TestEnvList(t *testing.T) {
	t.Setenv("SW_TEST_LIST", "NIFTY,BANKNIFTY")
	got := EnvList("SW_TEST_LIST", []string{"RELIANCE"})
	if len(got) != 2 || got[0] != "NIFTY" || got[1] != "BANKNIFTY" {
		t.Fatalf("set: got %v", got)
	}
	got = EnvList("SW_TEST_LIST_MISSING", []string{"RELIANCE"})
	if len(got) != 1 || got[0] != "RELIANCE" {
		t.Fatalf("unset: got %v", got)
	}
}

func TestEnvIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("SW_TEST_INT", "8081")
	if got := EnvInt("SW_TEST_INT", 8080); got != 8081 {
		t.Fatalf("set: got %d", got)
	}
	t.Setenv("SW_TEST_INT", "not-a-port")
	if got := EnvInt("SW_TEST_INT", 8080); got != 8080 {
		t.Fatalf("garbage: got %d", got)
	}
}

func TestEnvFloat(t *testing.T) {
	t.Setenv("SW_TEST_FLOAT", "0.65")
	if got := EnvFloat("SW_TEST_FLOAT", 0.5); got != 0.65 {
		t.Fatalf("set: got %f", got)
	}
	if got := EnvFloat("SW_TEST_FLOAT_MISSING", 0.5); got != 0.5 {
		t.Fatalf("unset: got %f", got)
	}
}
