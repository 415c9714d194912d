package codedeploy

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mvvbapiraju/deployctl/pkg/engine"
)

// STSScoper implements engine.CredentialScoper with STS assume-role.
// Credentials are acquired per invocation and handed to the enclosed
// function as environment entries; nothing is cached across calls.
type STSScoper struct {
	runner engine.CommandRunner
}

// NewSTSScoper creates a credential scoper.
func NewSTSScoper(runner engine.CommandRunner) *STSScoper {
	return &STSScoper{runner: runner}
}

// assumeRoleOutput is the CLI response shape for sts assume-role.
type assumeRoleOutput struct {
	Credentials struct {
		AccessKeyID     string `json:"AccessKeyId"`
		SecretAccessKey string `json:"SecretAccessKey"`
		SessionToken    string `json:"SessionToken"`
		Expiration      string `json:"Expiration"`
	} `json:"Credentials"`
}

// WithScopedCredentials runs fn with credentials for roleARN. An empty
// roleARN means ambient identity: fn receives only the region setting.
func (s *STSScoper) WithScopedCredentials(ctx context.Context, region, roleARN string, fn func(env []string) error) error {
	var env []string
	if region != "" {
		env = append(env, "AWS_DEFAULT_REGION="+region)
	}

	if roleARN == "" {
		return fn(env)
	}

	session := "deployctl-" + uuid.New().String()
	args := []string{
		"sts", "assume-role",
		"--role-arn", roleARN,
		"--role-session-name", session,
		"--output", "json",
	}
	if region != "" {
		args = append(args, "--region", region)
	}

	result, err := s.runner.RunOrFail(ctx, engine.Command{Name: "aws", Args: args})
	if err != nil {
		return err
	}

	var out assumeRoleOutput
	if err := json.Unmarshal([]byte(result.Stdout), &out); err != nil {
		return engine.NewInternalError("parsing assume-role output", err)
	}
	if out.Credentials.AccessKeyID == "" {
		return engine.NewInternalError(fmt.Sprintf("assume-role for %s returned no credentials", roleARN), nil)
	}

	log.Debug().
		Str("role_arn", roleARN).
		Str("session", session).
		Str("expires", out.Credentials.Expiration).
		Msg("assumed role")

	env = append(env,
		"AWS_ACCESS_KEY_ID="+out.Credentials.AccessKeyID,
		"AWS_SECRET_ACCESS_KEY="+out.Credentials.SecretAccessKey,
		"AWS_SESSION_TOKEN="+out.Credentials.SessionToken,
	)
	return fn(env)
}
