package mongo

import (
	"context"
	"testing"

	"github.com/haguru/eduquest/config"
	"github.com/haguru/eduquest/pkg/zerolog"
)

func TestGetDBNameFromMongoDSN(t *testing.T) {
	tests := []struct {
		name    string
		dsn     string
		want    string
		wantErr bool
	}{
		{name: "simple", dsn: "mongodb://localhost:27017/eduquest", want: "eduquest"},
		{name: "extra segments", dsn: "mongodb://localhost:27017/eduquest/users", want: "eduquest"},
		{name: "with query", dsn: "mongodb+srv://user:pw@cluster.example/eduquest?retryWrites=true", want: "eduquest"},
		{name: "no database", dsn: "mongodb://localhost:27017", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := getDBNameFromMongoDSN(tt.dsn)
			if (err != nil) != tt.wantErr {
				t.Errorf("getDBNameFromMongoDSN() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("getDBNameFromMongoDSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConnectRejectsBadDSN(t *testing.T) {
	client := NewMongoDB(&config.MongoDBConfig{}, zerolog.NewNopLogger())

	tests := []string{"", "postgres://localhost/db", "mongodb://localhost:27017"}
	for _, dsn := range tests {
		if err := client.Connect(context.Background(), dsn); err == nil {
			t.Errorf("Connect(%q) expected error", dsn)
		}
	}
	if _, err := client.Collection("users"); err == nil {
		t.Error("Collection() on an unconnected client expected error")
	}
	if err := client.Disconnect(context.Background()); err != nil {
		t.Errorf("Disconnect() on an unconnected client = %v", err)
	}
}
