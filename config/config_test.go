package config

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetters(t *testing.T) {
	env := map[string]string{
		"PORT":    "9090",
		"EMPTY":   "",
		"BAD_INT": "x",
		"FLAG":    "true",
		"LIST":    " a@x.edu, ,B@x.edu ",
	}

	assert.Equal(t, "9090", GetString(env, "PORT", "8080"))
	assert.Equal(t, "fallback", GetString(env, "EMPTY", "fallback"))
	assert.Equal(t, "fallback", GetString(nil, "PORT", "fallback"))
	assert.Equal(t, 9090, GetInt(env, "PORT", 1))
	assert.Equal(t, 1, GetInt(env, "BAD_INT", 1))
	assert.True(t, GetBool(env, "FLAG", false))
	assert.False(t, GetBool(env, "MISSING", false))
	assert.Equal(t, []string{"a@x.edu", "B@x.edu"}, GetList(env, "LIST"))
	assert.Nil(t, GetList(env, "MISSING"))
}

func TestLoad(t *testing.T) {
	env := map[string]string{
		"JWT_SECRET":      "s3cret",
		"DB_HOST":         "db",
		"DB_USER":         "shelf",
		"DB_PASSWORD":     "pw",
		"DB_NAME":         "shelf",
		"HOD_EMAILS":      "Head@College.edu",
		"TOKEN_TTL_HOURS": "2",
	}

	s, err := Load(env)
	require.NoError(t, err)
	assert.Equal(t, "8080", s.Port)
	assert.Equal(t, "host=db user=shelf password=pw dbname=shelf port=5432 sslmode=require", s.DatabaseDSN)
	assert.Equal(t, []string{"head@college.edu"}, s.HODEmails)
	assert.Equal(t, 2*time.Hour, s.TokenTTL)
	assert.Equal(t, 72*time.Hour, s.DraftTTL)
}

func TestLoad_PrefersDatabaseURL(t *testing.T) {
	s, err := Load(map[string]string{"JWT_SECRET": "x", "DATABASE_URL": "postgres://u@h/db", "DB_HOST": "ignored"})
	require.NoError(t, err)
	assert.Equal(t, "postgres://u@h/db", s.DatabaseDSN)
}

func TestLoad_RequiresSecretAndDatabase(t *testing.T) {
	_, err := Load(map[string]string{"DATABASE_URL": "postgres://u@h/db"})
	assert.ErrorContains(t, err, "JWT_SECRET")

	_, err = Load(map[string]string{"JWT_SECRET": "x"})
	assert.ErrorContains(t, err, "DATABASE_URL")
}

type fakeSSM struct {
	pages [][]types.Parameter
	calls int
}

func (f *fakeSSM) GetParametersByPath(ctx context.Context, in *ssm.GetParametersByPathInput, _ ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error) {
	page := f.pages[f.calls]
	f.calls++
	out := &ssm.GetParametersByPathOutput{Parameters: page}
	if f.calls < len(f.pages) {
		out.NextToken = aws.String("next")
	}
	return out, nil
}

func TestOverlayFrom_FillsOnlyMissingKeys(t *testing.T) {
	client := &fakeSSM{pages: [][]types.Parameter{
		{{Name: aws.String("/shelf/prod/jwt_secret"), Value: aws.String("from-ssm")}},
		{{Name: aws.String("/shelf/prod/PORT"), Value: aws.String("7000")}},
	}}
	env := map[string]string{"PORT": "8081"}

	require.NoError(t, overlayFrom(context.Background(), client, "/shelf/prod", env))
	assert.Equal(t, "from-ssm", env["JWT_SECRET"])
	assert.Equal(t, "8081", env["PORT"])
	assert.Equal(t, 2, client.calls)
}
