package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dasmlab/vakya/pkg/service"
	"github.com/dasmlab/vakya/pkg/translate"
)

var (
	serverAddr string
	method     string
	textFile   string
	text       string
	timeout    time.Duration
)

var logger = logrus.New()

var rootCmd = &cobra.Command{
	Use:          "testclient",
	Short:        "Call a running vakya gRPC server",
	SilenceUsage: true,
	RunE:         runTranslate,
}

var methodsCmd = &cobra.Command{
	Use:   "methods",
	Short: "List the server's translation methods",
	RunE:  runMethods,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	pflags := rootCmd.PersistentFlags()
	pflags.StringVar(&serverAddr, "addr", "localhost:50051", "gRPC server address")
	pflags.DurationVar(&timeout, "timeout", 5*time.Minute, "Request timeout")

	flags := rootCmd.Flags()
	flags.StringVarP(&method, "method", "m", string(translate.MethodAPI), `Translation method: "api", "local" or "modelv3"`)
	flags.StringVar(&textFile, "file", "", "Path to text file to translate")
	flags.StringVar(&text, "text", "", "Text to translate (if file not provided)")

	rootCmd.AddCommand(methodsCmd)
}

func dial(ctx context.Context) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(serverAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}

	resp, err := grpc_health_v1.NewHealthClient(conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{
		Service: service.TranslatorServiceName,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("health check failed: %w", err)
	}
	logger.WithField("status", resp.GetStatus().String()).Info("Server health")
	return conn, nil
}

func readText() (string, error) {
	if textFile != "" {
		data, err := os.ReadFile(textFile)
		if err != nil {
			return "", fmt.Errorf("failed to read file %s: %w", textFile, err)
		}
		return string(data), nil
	}
	if text == "" {
		return "", errors.New("either --file or --text must be provided")
	}
	return text, nil
}

func runTranslate(cmd *cobra.Command, _ []string) error {
	textToTranslate, err := readText()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	logger.WithFields(logrus.Fields{
		"server":      serverAddr,
		"method":      method,
		"text_length": len(textToTranslate),
	}).Info("Connecting to Vakya server...")

	conn, err := dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	startTime := time.Now()
	result, err := service.NewClient(conn).Translate(ctx, textToTranslate, translate.Method(method))
	if err != nil {
		logger.WithError(err).Error("Translation failed")
		return err
	}
	duration := time.Since(startTime)

	separator := strings.Repeat("=", 80)
	dashLine := strings.Repeat("-", 80)

	fmt.Println()
	fmt.Println(separator)
	fmt.Println("TRANSLATION RESULTS")
	fmt.Println(separator)
	fmt.Printf("\nMethod: %s\n", result.Method)
	fmt.Printf("Languages: %s -> %s\n", result.SourceLanguage, result.TargetLanguage)
	fmt.Printf("Translation Time: %.2f seconds\n", duration.Seconds())
	fmt.Println()
	fmt.Println(dashLine)
	fmt.Println("ORIGINAL TEXT:")
	fmt.Println(dashLine)
	fmt.Println(textToTranslate)
	fmt.Println()
	fmt.Println(dashLine)
	fmt.Println("TRANSLATED TEXT:")
	fmt.Println(dashLine)
	fmt.Println(result.TranslatedText)
	fmt.Println()
	fmt.Println(separator)

	logger.WithFields(logrus.Fields{
		"duration_seconds": duration.Seconds(),
	}).Info("Translation completed successfully")
	return nil
}

func runMethods(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	conn, err := dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	methods, err := service.NewClient(conn).ListMethods(ctx)
	if err != nil {
		return err
	}
	for _, m := range methods {
		fmt.Printf("%-8s available=%-5t %s\n", m.Value, m.Available, m.Label)
	}
	return nil
}
