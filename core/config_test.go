package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
		check   func(t *testing.T, conf *Config)
	}{
		{
			name: "defaults",
			check: func(t *testing.T, conf *Config) {
				assert.Equal(t, "DEV", conf.Env)
				assert.Equal(t, "postgres", conf.Database.Engine)
				assert.Equal(t, 5432, conf.Database.Port)
				assert.Equal(t, DefaultBatchSize, conf.Migration.BatchSize)
				assert.Equal(t, "data", conf.Storage.DataDir)
				assert.False(t, conf.Database.HasCredentials())
				assert.False(t, conf.TestMode)
			},
		},
		{
			name: "environment",
			env: map[string]string{
				"ENV":                   "test",
				"DATABASE_HOST":         "db.example.com",
				"DATABASE_USER":         "admin",
				"DATABASE_ENGINE":       "pgx",
				"DATABASE_PINGATTEMPTS": "0",
				"MIGRATION_BATCHSIZE":   "100",
			},
			check: func(t *testing.T, conf *Config) {
				assert.Equal(t, "TEST", conf.Env)
				assert.True(t, conf.TestMode)
				assert.True(t, conf.Database.HasCredentials())
				assert.Equal(t, "db.example.com:5432", conf.Database.Address())
				assert.Equal(t, "pgx", conf.Database.Engine)
				assert.Equal(t, 1, conf.Database.PingAttempts)
				assert.Equal(t, 100, conf.Migration.BatchSize)
			},
		},
		{name: "unsupported engine", env: map[string]string{"DATABASE_ENGINE": "mysql"}, wantErr: `config: unsupported database engine "mysql"`},
		{name: "invalid batch size", env: map[string]string{"MIGRATION_BATCHSIZE": "0"}, wantErr: "config: migration batch size must be positive (got 0)"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("ENV", "")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			conf, err := NewConfig()
			if tc.wantErr != "" {
				require.EqualError(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			tc.check(t, conf)
		})
	}
}
