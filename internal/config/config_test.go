package config

import (
    "os"
    "testing"
)

func TestLoadDefaults(t *testing.T) {
    // Clear relevant envs
    os.Unsetenv("PORT")
    os.Unsetenv("LOG_LEVEL")
    os.Unsetenv("CALL_MIN_CONFIDENCE")
    os.Unsetenv("PROVIDER_MODEL")
    os.Unsetenv("FORCE_RULE_BASED")

    c := Load()

    if c.Server.Port != "8080" {
        t.Fatalf("expected default port 8080, got %q", c.Server.Port)
    }
    if c.Server.LogLevel != "info" {
        t.Fatalf("expected default log level info, got %q", c.Server.LogLevel)
    }
    if c.Call.MinConfidence != 0.35 {
        t.Fatalf("expected default confidence floor 0.35, got %v", c.Call.MinConfidence)
    }
    if c.Provider.Model != "deepseek-chat" {
        t.Fatalf("expected default model deepseek-chat, got %q", c.Provider.Model)
    }
    if c.Provider.ForceRuleBased {
        t.Fatal("force_rule_based should default to false")
    }
}

func TestLoadEnvOverrides(t *testing.T) {
    os.Setenv("PORT", "9191")
    os.Setenv("FORCE_RULE_BASED", "true")
    os.Setenv("SILENCE_TIMEOUT_SECONDS", "5")
    defer func() {
        os.Unsetenv("PORT")
        os.Unsetenv("FORCE_RULE_BASED")
        os.Unsetenv("SILENCE_TIMEOUT_SECONDS")
    }()

    c := Load()

    if c.Server.Port != "9191" {
        t.Fatalf("expected port 9191, got %q", c.Server.Port)
    }
    if !c.Provider.ForceRuleBased {
        t.Fatal("expected force_rule_based true")
    }
    if c.Call.SilenceTimeoutSeconds != 5 {
        t.Fatalf("expected silence timeout 5, got %d", c.Call.SilenceTimeoutSeconds)
    }
}
