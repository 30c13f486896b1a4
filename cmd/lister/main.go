package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/catalog"
	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/config"
	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/feed"
	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/imagehost"
	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/logging"
	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/marketplace"
	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/metrics"
	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/pipeline"
	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/state"
	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/storefront"
)

func main() {
	var (
		batch        = flag.Bool("batch", false, "submit all images as one combined listings feed plus one inventory feed")
		wait         = flag.Bool("wait", true, "poll each feed until it finishes and print its report")
		encoding     = flag.String("encoding", "", "listings encoding: tabular or json (default FEED_ENCODING)")
		imageFeed    = flag.Bool("image-feed", false, "also submit an image-association feed")
		contentToken = flag.Bool("content-token", false, "append a token derived from the image bytes to every SKU")
		title        = flag.String("title", "", "title override (single image only)")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] image [image...]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	paths := flag.Args()
	if len(paths) == 0 {
		flag.Usage()
		os.Exit(2)
	}
	if *title != "" && len(paths) > 1 {
		fmt.Fprintln(os.Stderr, "-title needs exactly one image")
		os.Exit(2)
	}

	cfg := config.Load()
	logger := logging.NewForEnv(cfg.Env, cfg.LogLevel, cfg.LogFormat).Named("lister")
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, options{
		paths:        paths,
		batch:        *batch,
		wait:         *wait,
		encoding:     *encoding,
		imageFeed:    *imageFeed,
		contentToken: *contentToken,
		title:        *title,
	}); err != nil {
		logger.Error("lister failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	paths        []string
	batch        bool
	wait         bool
	encoding     string
	imageFeed    bool
	contentToken bool
	title        string
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger, opts options) error {
	cat := catalog.Default()
	if cfg.Feed.CatalogFile != "" {
		c, err := catalog.Load(cfg.Feed.CatalogFile)
		if err != nil {
			return err
		}
		cat = c
	}

	images, err := imagehost.New(ctx, imagehost.FactoryConfig{
		Backend: cfg.ImageHost.Backend,
		ImgBB: imagehost.ImgBBConfig{
			APIKey: cfg.ImageHost.ImgBBKey,
			URL:    cfg.ImageHost.ImgBBURL,
		},
		S3: imagehost.S3Config{
			Endpoint:      cfg.ImageHost.S3Endpoint,
			Bucket:        cfg.ImageHost.S3Bucket,
			Region:        cfg.ImageHost.S3Region,
			AccessKey:     cfg.ImageHost.S3AccessKey,
			SecretKey:     cfg.ImageHost.S3SecretKey,
			PublicBaseURL: cfg.ImageHost.S3PublicBaseURL,
			Prefix:        cfg.ImageHost.S3Prefix,
			UsePathStyle:  cfg.ImageHost.S3PathStyle,
		},
	}, logger)
	if err != nil {
		return fmt.Errorf("image host: %w", err)
	}

	shop, err := storefront.NewShopify(storefront.Config{
		Store:      cfg.Shopify.Store,
		Token:      cfg.Shopify.Token,
		APIVersion: cfg.Shopify.APIVersion,
	}, storefront.WithLogger(logger))
	if err != nil {
		return err
	}

	rec := metrics.New()
	defer func() {
		// the run context may already be cancelled
		pctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := rec.Push(pctx, cfg.PushgatewayURL, metrics.PushJob); err != nil {
			logger.Warn("push metrics", zap.String("url", cfg.PushgatewayURL), zap.Error(err))
		}
	}()

	mkt := marketplace.New(marketplace.Config{
		Endpoint:          cfg.Amazon.Endpoint,
		MarketplaceID:     cfg.Amazon.MarketplaceID,
		RequestsPerSecond: cfg.Amazon.RequestsPerSecond,
		RegisterRetries:   cfg.Feed.RegisterRetries,
		RegisterBackoff:   marketplace.FixedBackoff{Interval: cfg.Feed.RegisterRetryDelay},
		OnRetry:           rec.RegisterRetry,
	}, &marketplace.TokenSource{
		TokenURL:     cfg.Amazon.TokenURL,
		ClientID:     cfg.Amazon.ClientID,
		ClientSecret: cfg.Amazon.ClientSecret,
		RefreshToken: cfg.Amazon.RefreshToken,
	}, marketplace.WithLogger(logger))

	storeRes, err := state.NewStore(ctx, state.FactoryConfig{
		Backend:       cfg.StateBackend,
		MySQLDSN:      cfg.MySQLDSN,
		RunMigrations: cfg.RunMigrations,
		MigrationsDir: cfg.MigrationsDir,
	})
	if err != nil {
		return fmt.Errorf("state store: %w", err)
	}
	defer func() { _ = storeRes.Close() }()

	enc := opts.encoding
	if enc == "" {
		enc = cfg.Feed.Encoding
	}

	p := &pipeline.Pipeline{
		Images:        images,
		Storefront:    shop,
		Marketplace:   mkt,
		Catalog:       cat,
		Feeds:         feed.DefaultRegistry(cfg.Amazon.SellerID, cfg.Amazon.MarketplaceID),
		Encoding:      enc,
		ContentTokens: opts.contentToken,
		ImageFeed:     opts.imageFeed,
		Store:         storeRes.Store,
		Logger:        logger,
		Metrics:       rec,
		Progress:      printProgress,
	}
	if opts.wait {
		p.Poll = marketplace.Poll{
			Attempts: cfg.Feed.PollAttempts,
			Backoff:  marketplace.FixedBackoff{Interval: cfg.Feed.PollInterval},
		}
	}

	imgs := make([]pipeline.Image, 0, len(opts.paths))
	for _, path := range opts.paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		imgs = append(imgs, pipeline.Image{Name: filepath.Base(path), Data: data, Title: opts.title})
	}

	if opts.batch {
		res, err := p.RunBatch(ctx, imgs)
		printResult(res)
		return err
	}

	// one run per image, stopping at the first failure
	for _, img := range imgs {
		res, err := p.Run(ctx, img)
		printResult(res)
		if err != nil {
			return err
		}
	}
	return nil
}

func printProgress(ev pipeline.ProgressEvent) {
	mark := "ok"
	if !ev.OK {
		mark = "FAIL"
	}
	if ev.Title != "" {
		fmt.Printf("[%s] %s %s: %s\n", mark, ev.Stage, ev.Title, ev.Detail)
		return
	}
	fmt.Printf("[%s] %s: %s\n", mark, ev.Stage, ev.Detail)
}

func printResult(res pipeline.Result) {
	for _, f := range res.Feeds {
		fmt.Printf("feed %s %s run=%s status=%s\n", f.FeedType, f.FeedID, f.RunID, f.Status)
		if f.Report != "" {
			fmt.Println(f.Report)
		}
	}
}
