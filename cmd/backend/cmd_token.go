package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	clientpkg "github.com/stormhead-org/comments/internal/client"
	configpkg "github.com/stormhead-org/comments/internal/config"
	jwtpkg "github.com/stormhead-org/comments/internal/jwt"
	"github.com/stormhead-org/comments/internal/metrics"
	ormpkg "github.com/stormhead-org/comments/internal/orm"
)

var tokenFlags struct {
	userID string
	name   string
	avatar string
}

var tokenCommand = &cobra.Command{
	Use:   "token",
	Short: "mint an access token and register the author profile",
	Long: "Prints a bearer token for --user. With --name the author profile is " +
		"written to postgres, and --avatar uploads an image as the profile avatar.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return tokenCommandImpl(cmd.Context())
	},
}

func tokenCommandImpl(ctx context.Context) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}

	userID := uuid.New()
	if tokenFlags.userID != "" {
		userID, err = uuid.Parse(tokenFlags.userID)
		if err != nil {
			return fmt.Errorf("invalid --user: %w", err)
		}
	}

	if tokenFlags.name != "" || tokenFlags.avatar != "" {
		err = registerAuthor(ctx, config, userID)
		if err != nil {
			return err
		}
	}

	token, err := jwtpkg.NewJWT(config.Auth.JWTSecret).GenerateAccessToken(userID, config.Auth.TokenTTL)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "user:  %s\ntoken: %s\n", userID, token)
	return nil
}

func registerAuthor(ctx context.Context, config *configpkg.Config, userID uuid.UUID) error {
	logger, err := newLogger(config)
	if err != nil {
		return err
	}
	defer logger.Sync()

	user := &ormpkg.User{ID: userID, DisplayName: tokenFlags.name}

	if tokenFlags.avatar != "" {
		if config.Avatars.Bucket == "" {
			return fmt.Errorf("--avatar needs an avatar bucket to be configured")
		}
		data, err := os.ReadFile(tokenFlags.avatar)
		if err != nil {
			return err
		}

		avatars, err := clientpkg.NewAvatarClient(ctx, config.Avatars.Region, config.Avatars.Endpoint, config.Avatars.Bucket, config.Avatars.PresignTTL)
		if err != nil {
			return err
		}
		key := "avatars/" + userID.String()
		err = avatars.UploadAvatar(ctx, key, http.DetectContentType(data), bytes.NewReader(data))
		if err != nil {
			return err
		}
		user.AvatarKey = &key
		logger.Info("uploaded avatar", zap.String("key", key))
	}

	client, err := newPostgresClient(config, metrics.New(logger))
	if err != nil {
		return err
	}
	defer client.Close()

	err = client.UpsertUser(ctx, user)
	if err != nil {
		return err
	}
	logger.Info("registered author", zap.String("user_id", userID.String()), zap.String("display_name", user.DisplayName))
	return nil
}

func init() {
	tokenCommand.Flags().StringVar(&tokenFlags.userID, "user", "", "user id, a new one is generated when empty")
	tokenCommand.Flags().StringVar(&tokenFlags.name, "name", "", "display name of the author profile")
	tokenCommand.Flags().StringVar(&tokenFlags.avatar, "avatar", "", "path of an avatar image to upload")
	rootCommand.AddCommand(tokenCommand)
}
