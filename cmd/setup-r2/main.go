package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"event-ticketing-core/internal/config"
	"event-ticketing-core/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	factory := services.NewStorageFactory(cfg)

	if err := factory.ValidateR2Configuration(); err != nil {
		log.Fatalf("R2 configuration validation failed: %v", err)
	}

	fmt.Println("R2 configuration is valid")
	fmt.Printf("  Bucket Name: %s\n", cfg.R2.BucketName)
	fmt.Printf("  Public URL: %s\n", cfg.R2.PublicURL)
	fmt.Printf("  Fallback Path: %s\n", cfg.Credential.UploadPath)

	if len(os.Args) > 1 && os.Args[1] == "setup" {
		fmt.Println("\nSetting up R2 bucket...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := factory.SetupR2Bucket(ctx); err != nil {
			log.Fatalf("Failed to set up R2 bucket: %v", err)
		}

		fmt.Println("R2 bucket setup completed successfully!")
	} else {
		fmt.Println("\nTo set up the R2 bucket, run: go run ./cmd/setup-r2 setup")
	}
}
