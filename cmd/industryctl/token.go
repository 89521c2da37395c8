package main

import (
	"fmt"

	"github.com/indyforge/groupindustry/internal/models"
	"github.com/indyforge/groupindustry/internal/utils"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API bearer token for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetUint("user")
		hours, _ := cmd.Flags().GetInt("hours")

		cfg, db, err := loadConfig()
		if err != nil {
			return err
		}
		defer closeDB(db)

		var user models.User
		if err := db.WithContext(cmd.Context()).First(&user, userID).Error; err != nil {
			return fmt.Errorf("user %d: %w", userID, err)
		}
		if !user.IsActive {
			return fmt.Errorf("user %d is disabled", userID)
		}

		if hours <= 0 {
			hours = cfg.JWT.ExpireHour
		}
		utils.SetJWTSecret(cfg.JWT.Secret)
		token, err := utils.GenerateToken(user.ID, user.Username, user.Role, hours)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().Uint("user", 0, "User ID")
	tokenCmd.Flags().Int("hours", 0, "Token lifetime in hours (default jwt.expire_hour)")
	tokenCmd.MarkFlagRequired("user")
}
