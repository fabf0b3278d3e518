package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"MODE", "HTTP_ADDR", "DB_DRIVER", "SHORT_ANSWER_POLICY", "REQUEST_TIMEOUT", "ENABLE_LOCAL_AUTH"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()
	if cfg.Mode != ModeOffline {
		t.Fatalf("mode = %q", cfg.Mode)
	}
	if cfg.HTTPAddr != ":8080" || cfg.DBDriver != "sqlite" {
		t.Fatalf("addr/driver = %q/%q", cfg.HTTPAddr, cfg.DBDriver)
	}
	if !cfg.EnableLocalAuth {
		t.Fatalf("local auth should default on in offline mode")
	}
	if cfg.ShortAnswerPolicy != "zero" {
		t.Fatalf("short answer policy = %q", cfg.ShortAnswerPolicy)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Fatalf("timeout = %v", cfg.RequestTimeout)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("MODE", "online")
	t.Setenv("CORS_ORIGINS_ONLINE", " https://a.example , ,https://b.example")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("ENABLE_LOCAL_AUTH", "")
	t.Setenv("SHORT_ANSWER_POLICY", "EXCLUDE")

	cfg := FromEnv()
	if cfg.EnableLocalAuth {
		t.Fatalf("local auth should default off online")
	}
	got := cfg.CORSOrigins()
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Fatalf("origins = %v", got)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Fatalf("timeout = %v", cfg.RequestTimeout)
	}
	if cfg.ShortAnswerPolicy != "exclude" {
		t.Fatalf("policy = %q", cfg.ShortAnswerPolicy)
	}
}
