package clickhouse

import (
	"net/url"
	"testing"
	"time"
)

func TestBuildDSN(t *testing.T) {
	cfg := ClientConfig{
		Host:         "ch.local",
		Port:         9000,
		Database:     "stockcharts",
		User:         "reader",
		Password:     "p@ss",
		DialTimeout:  5 * time.Second,
		ReadTimeout:  30 * time.Second,
		MaxExecTime:  time.Minute,
		AsyncInsert:  true,
		WaitForAsync: true,
	}

	u, err := url.Parse(BuildDSN(cfg))
	if err != nil {
		t.Fatal(err)
	}
	if u.Scheme != "clickhouse" || u.Host != "ch.local:9000" || u.Path != "/stockcharts" {
		t.Fatalf("dsn = %s", u)
	}
	if pw, _ := u.User.Password(); u.User.Username() != "reader" || pw != "p@ss" {
		t.Fatalf("user = %v", u.User)
	}
	q := u.Query()
	want := map[string]string{
		"dial_timeout":          "5s",
		"read_timeout":          "30s",
		"max_execution_time":    "60",
		"async_insert":          "1",
		"wait_for_async_insert": "1",
	}
	for k, v := range want {
		if q.Get(k) != v {
			t.Errorf("%s = %q, want %q", k, q.Get(k), v)
		}
	}
}

func TestBuildDSN_HTTP(t *testing.T) {
	u, err := url.Parse(BuildDSN(ClientConfig{Host: "h", Port: 8123, Database: "d", UseHTTP: true}))
	if err != nil {
		t.Fatal(err)
	}
	if u.Scheme != "http" || u.RawQuery != "" {
		t.Fatalf("dsn = %s", u)
	}
}

func TestNewClient_RequiresHost(t *testing.T) {
	if _, err := NewClient(WithAddr("", 9000)); err == nil {
		t.Fatal("expected error without host")
	}
}

func TestOptions(t *testing.T) {
	cfg := ClientConfig{Port: 9000, ConnMaxLifetime: time.Minute}
	for _, opt := range []ClientOption{
		WithAddr("ch.local", 0),
		WithPool(4, 2, 0),
		WithTimeouts(time.Second, 2*time.Second),
	} {
		opt(&cfg)
	}
	if cfg.Host != "ch.local" || cfg.Port != 9000 {
		t.Errorf("addr = %s:%d", cfg.Host, cfg.Port)
	}
	if cfg.MaxOpenConns != 4 || cfg.MaxIdleConns != 2 || cfg.ConnMaxLifetime != time.Minute {
		t.Errorf("pool = %d/%d/%s", cfg.MaxOpenConns, cfg.MaxIdleConns, cfg.ConnMaxLifetime)
	}
	if cfg.DialTimeout != time.Second || cfg.ReadTimeout != 2*time.Second {
		t.Errorf("timeouts = %s/%s", cfg.DialTimeout, cfg.ReadTimeout)
	}
}
