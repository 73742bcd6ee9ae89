package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/agrosolve/agrosolve/pkg/config"
	"github.com/agrosolve/agrosolve/pkg/gemini"
)

var envVars = []string{
	config.EnvListen,
	config.EnvModel,
	config.EnvBackend,
	config.EnvDebug,
	config.EnvAPIKey,
	config.EnvGoogleAPIKey,
}

// setEnv sets key for the current test and restores it afterwards.
func setEnv(key, value string) {
	old, had := os.LookupEnv(key)
	Expect(os.Setenv(key, value)).To(Succeed())
	DeferCleanup(func() {
		if had {
			os.Setenv(key, old)
		} else {
			os.Unsetenv(key)
		}
	})
}

func unsetEnv(key string) {
	old, had := os.LookupEnv(key)
	Expect(os.Unsetenv(key)).To(Succeed())
	DeferCleanup(func() {
		if had {
			os.Setenv(key, old)
		}
	})
}

var _ = Describe("Config", func() {
	var dir string

	writeFile := func(name, content string) string {
		path := filepath.Join(dir, name)
		Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
		return path
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()

		wd, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(dir)).To(Succeed())
		DeferCleanup(os.Chdir, wd)

		for _, key := range envVars {
			unsetEnv(key)
		}
	})

	Describe("Load", func() {
		It("uses defaults when nothing is configured", func() {
			cfg, err := config.Load("")
			Expect(err).NotTo(HaveOccurred())

			Expect(cfg.Server.Listen).To(Equal(":8080"))
			Expect(cfg.Model.Backend).To(Equal(gemini.BackendSDK))
			Expect(cfg.Model.Name).To(Equal("gemini-3-flash-preview"))
			Expect(cfg.APIKey).To(BeEmpty())
			Expect(cfg.RequestTimeout()).To(Equal(90 * time.Second))
			Expect(cfg.BodyLimit()).To(Equal(16 << 20))
		})

		It("reads the default file from the working directory", func() {
			writeFile(config.DefaultPath, `
[server]
listen = ":9090"

[model]
backend = "rest"
temperature = 0.2
max_output_tokens = 512

[image]
check_content = true
`)

			cfg, err := config.Load("")
			Expect(err).NotTo(HaveOccurred())

			Expect(cfg.Server.Listen).To(Equal(":9090"))
			Expect(cfg.Server.MaxSessions).To(Equal(1000))
			Expect(cfg.Model.Backend).To(Equal(gemini.BackendREST))
			Expect(cfg.Model.Temperature).To(HaveValue(BeNumerically("~", 0.2)))
			Expect(cfg.Model.MaxOutputTokens).To(HaveValue(Equal(512)))
			Expect(cfg.Model.TopK).To(BeNil())
			Expect(cfg.Image.CheckContent).To(BeTrue())
		})

		It("requires an explicitly named file to exist", func() {
			_, err := config.Load(filepath.Join(dir, "missing.toml"))
			Expect(err).To(HaveOccurred())
		})

		It("rejects malformed TOML", func() {
			path := writeFile("bad.toml", "[server\nlisten = ")
			_, err := config.Load(path)
			Expect(err).To(MatchError(ContainSubstring("failed to parse config")))
		})

		It("lets the environment override the file", func() {
			path := writeFile("custom.toml", `
[server]
listen = ":9090"
[model]
name = "from-file"
`)
			setEnv(config.EnvListen, ":7070")
			setEnv(config.EnvModel, "from-env")
			setEnv(config.EnvBackend, "REST")
			setEnv(config.EnvDebug, "true")

			cfg, err := config.Load(path)
			Expect(err).NotTo(HaveOccurred())

			Expect(cfg.Server.Listen).To(Equal(":7070"))
			Expect(cfg.Model.Name).To(Equal("from-env"))
			Expect(cfg.Model.Backend).To(Equal(gemini.BackendREST))
			Expect(cfg.Log.Debug).To(BeTrue())
		})

		It("rejects an unparsable debug flag", func() {
			setEnv(config.EnvDebug, "sometimes")
			_, err := config.Load("")
			Expect(err).To(MatchError(ContainSubstring(config.EnvDebug)))
		})

		Describe("API key", func() {
			It("prefers GEMINI_API_KEY", func() {
				setEnv(config.EnvAPIKey, "gemini-key")
				setEnv(config.EnvGoogleAPIKey, "google-key")

				cfg, err := config.Load("")
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.APIKey).To(Equal("gemini-key"))
			})

			It("falls back to GOOGLE_API_KEY", func() {
				setEnv(config.EnvGoogleAPIKey, "google-key")

				cfg, err := config.Load("")
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.APIKey).To(Equal("google-key"))
			})

			It("is never read from the config file", func() {
				writeFile(config.DefaultPath, "APIKey = \"from-file\"\n")

				cfg, err := config.Load("")
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.APIKey).To(BeEmpty())
			})

			It("is loaded from .env without overriding the environment", func() {
				writeFile(".env", "GEMINI_API_KEY=dotenv-key\nAGROSOLVE_LISTEN=:6060\n")
				DeferCleanup(os.Unsetenv, config.EnvAPIKey)
				setEnv(config.EnvListen, ":5050")

				cfg, err := config.Load("")
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.APIKey).To(Equal("dotenv-key"))
				Expect(cfg.Server.Listen).To(Equal(":5050"))
			})
		})
	})

	Describe("Validate", func() {
		DescribeTable("rejects unusable settings",
			func(mutate func(*config.Config)) {
				cfg := config.Default()
				mutate(cfg)
				Expect(cfg.Validate()).To(HaveOccurred())
			},
			Entry("unknown backend", func(c *config.Config) { c.Model.Backend = "grpc" }),
			Entry("empty model", func(c *config.Config) { c.Model.Name = " " }),
			Entry("zero body limit", func(c *config.Config) { c.Server.BodyLimitMB = 0 }),
			Entry("zero timeout", func(c *config.Config) { c.Server.RequestTimeoutSeconds = 0 }),
			Entry("negative session cap", func(c *config.Config) { c.Server.MaxSessions = -1 }),
			Entry("negative image cap", func(c *config.Config) { c.Image.MaxBytes = -1 }),
			Entry("body limit below the encoded image cap", func(c *config.Config) { c.Server.BodyLimitMB = 12 }),
			Entry("image cap raised past the body limit", func(c *config.Config) { c.Image.MaxBytes = 16 << 20 }),
			Entry("temperature out of range", func(c *config.Config) {
				t := 3.0
				c.Model.Temperature = &t
			}),
		)

		It("accepts the defaults", func() {
			Expect(config.Default().Validate()).To(Succeed())
		})

		It("leaves room for a base64 encoded image at the cap", func() {
			cfg := config.Default()
			encoded := (cfg.Image.MaxBytes + 2) / 3 * 4

			Expect(config.MinBodyLimit(cfg.Image.MaxBytes)).To(BeNumerically(">", encoded))
			Expect(cfg.BodyLimit()).To(BeNumerically(">=", config.MinBodyLimit(cfg.Image.MaxBytes)))
		})
	})

	It("derives adapter and backend settings", func() {
		cfg := config.Default()
		cfg.APIKey = "k"
		cfg.Image.CheckContent = true

		a := cfg.Advice()
		Expect(a.Model).To(Equal(cfg.Model.Name))
		Expect(a.ImageMaxBytes).To(Equal(10 << 20))
		Expect(a.CheckImageContent).To(BeTrue())

		g := cfg.Gemini()
		Expect(g.APIKey).To(Equal("k"))
		Expect(g.Type).To(Equal(gemini.BackendSDK))
		Expect(g.Timeout).To(Equal(90 * time.Second))
	})
})
