package config

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"
)

// OverlaySSM fills missing keys of env from the SSM parameters stored under
// SSM_PARAMETER_PREFIX. Parameter "/shelf/prod/JWT_SECRET" becomes key JWT_SECRET.
// It is a no-op when the prefix is unset.
func OverlaySSM(ctx context.Context, env map[string]string) error {
	prefix := GetString(env, "SSM_PARAMETER_PREFIX", "")
	if prefix == "" {
		return nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}

	return overlayFrom(ctx, ssm.NewFromConfig(awsCfg), prefix, env)
}

func overlayFrom(ctx context.Context, client ssm.GetParametersByPathAPIClient, prefix string, env map[string]string) error {
	paginator := ssm.NewGetParametersByPathPaginator(client, &ssm.GetParametersByPathInput{
		Path:           aws.String(prefix),
		Recursive:      aws.Bool(true),
		WithDecryption: aws.Bool(true),
	})

	loaded := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("read ssm parameters under %s: %w", prefix, err)
		}
		for _, p := range page.Parameters {
			key := strings.ToUpper(path.Base(aws.ToString(p.Name)))
			if key == "" || key == "." || key == "/" {
				continue
			}
			if existing, ok := env[key]; ok && existing != "" {
				continue
			}
			env[key] = aws.ToString(p.Value)
			loaded++
		}
	}

	log.Info().Str("prefix", prefix).Int("parameters", loaded).Msg("Loaded configuration from SSM")
	return nil
}
