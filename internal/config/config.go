package config

import (
    "fmt"
    "log"
    "strings"

    "github.com/spf13/viper"
)

type Config struct {
    Server struct {
        Port     string
        LogLevel string
    }
    Call struct {
        MinConfidence         float64
        SilenceTimeoutSeconds int
    }
    Provider struct {
        BaseURL        string
        APIKey         string
        Model          string
        TimeoutSeconds int
        MaxRetries     int
        ForceRuleBased bool
    }
    WS struct {
        TokenSecret   string
        TokenExpMin   int
        TokenSkewSecs int
    }
}

func Load() Config {
    v := viper.New()
    v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
    v.AutomaticEnv()

    // Defaults
    v.SetDefault("server.port", 8080)
    v.SetDefault("server.log_level", "info")

    v.SetDefault("call.min_confidence", 0.35)
    v.SetDefault("call.silence_timeout_seconds", 30)

    v.SetDefault("provider.base_url", "https://api.deepseek.com/v1")
    v.SetDefault("provider.model", "deepseek-chat")
    v.SetDefault("provider.timeout_seconds", 12)
    v.SetDefault("provider.max_retries", 2)
    v.SetDefault("provider.force_rule_based", false)

    v.SetDefault("ws.token_exp_min", 60)
    v.SetDefault("ws.token_skew_secs", 30)

    // Map envs
    v.BindEnv("server.port", "PORT")
    v.BindEnv("server.log_level", "LOG_LEVEL")

    v.BindEnv("call.min_confidence", "CALL_MIN_CONFIDENCE")
    v.BindEnv("call.silence_timeout_seconds", "SILENCE_TIMEOUT_SECONDS")

    v.BindEnv("provider.base_url", "PROVIDER_BASE_URL")
    v.BindEnv("provider.api_key", "PROVIDER_API_KEY")
    v.BindEnv("provider.model", "PROVIDER_MODEL")
    v.BindEnv("provider.timeout_seconds", "PROVIDER_TIMEOUT_SECONDS")
    v.BindEnv("provider.max_retries", "PROVIDER_MAX_RETRIES")
    v.BindEnv("provider.force_rule_based", "FORCE_RULE_BASED")

    v.BindEnv("ws.token_secret", "CALL_WS_TOKEN_SECRET")
    v.BindEnv("ws.token_exp_min", "CALL_WS_TOKEN_EXP_MIN")
    v.BindEnv("ws.token_skew_secs", "CALL_WS_TOKEN_SKEW_SECS")

    var c Config
    c.Server.Port = toString(v.Get("server.port"))
    c.Server.LogLevel = v.GetString("server.log_level")

    c.Call.MinConfidence = v.GetFloat64("call.min_confidence")
    c.Call.SilenceTimeoutSeconds = v.GetInt("call.silence_timeout_seconds")

    c.Provider.BaseURL = v.GetString("provider.base_url")
    c.Provider.APIKey = v.GetString("provider.api_key")
    c.Provider.Model = v.GetString("provider.model")
    c.Provider.TimeoutSeconds = v.GetInt("provider.timeout_seconds")
    c.Provider.MaxRetries = v.GetInt("provider.max_retries")
    c.Provider.ForceRuleBased = v.GetBool("provider.force_rule_based")

    c.WS.TokenSecret = v.GetString("ws.token_secret")
    c.WS.TokenExpMin = v.GetInt("ws.token_exp_min")
    c.WS.TokenSkewSecs = v.GetInt("ws.token_skew_secs")

    log.Printf("config loaded: port=%s provider_model=%s force_rule_based=%v",
        c.Server.Port, c.Provider.Model, c.Provider.ForceRuleBased)
    return c
}

func toString(v any) string { return fmt.Sprint(v) }
