package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "does-not-exist.toml")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.App.Port != 8080 {
		t.Errorf("App.Port = %d, want 8080", cfg.App.Port)
	}
	if cfg.Extract.OCRLanguage != "eng" {
		t.Errorf("Extract.OCRLanguage = %q, want eng", cfg.Extract.OCRLanguage)
	}
	if cfg.Extract.RasterDPI != 144 {
		t.Errorf("Extract.RasterDPI = %d, want 144", cfg.Extract.RasterDPI)
	}
	if cfg.RabbitMQ.MessagePersistQueue != "tutor.message.persist" {
		t.Errorf("MessagePersistQueue = %q, want tutor.message.persist", cfg.RabbitMQ.MessagePersistQueue)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "does-not-exist.toml")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("EXTRACT_OCR_LANGUAGE", "deu")
	t.Setenv("EXTRACT_MAX_UPLOAD_MB", "25")
	t.Setenv("LLM_MODEL", "gpt-4o-mini")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.App.Port != 9090 {
		t.Errorf("App.Port = %d, want 9090", cfg.App.Port)
	}
	if cfg.Extract.OCRLanguage != "deu" {
		t.Errorf("Extract.OCRLanguage = %q, want deu", cfg.Extract.OCRLanguage)
	}
	if cfg.MaxUploadBytes() != 25<<20 {
		t.Errorf("MaxUploadBytes = %d, want %d", cfg.MaxUploadBytes(), 25<<20)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("LLM.Model = %q, want gpt-4o-mini", cfg.LLM.Model)
	}
}

func TestLoadInvalidEnvIntFallsBack(t *testing.T) {
	t.Setenv("CONFIG_FILE", "does-not-exist.toml")
	t.Setenv("APP_PORT", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.App.Port != 8080 {
		t.Errorf("App.Port = %d, want 8080 fallback", cfg.App.Port)
	}
}

func TestMySQLDSN(t *testing.T) {
	cfg := defaultConfig()
	cfg.MySQL.User = "tutor"
	cfg.MySQL.Password = "pw"
	cfg.MySQL.Host = "db"
	cfg.MySQL.Port = 3307
	cfg.MySQL.DB = "tutordb"
	cfg.MySQL.Params = "parseTime=true"

	want := "tutor:pw@tcp(db:3307)/tutordb?parseTime=true"
	if got := cfg.MySQLDSN(); got != want {
		t.Errorf("MySQLDSN = %q, want %q", got, want)
	}
}
