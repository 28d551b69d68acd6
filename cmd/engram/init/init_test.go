package initcmder_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	initcmder "github.com/papercomputeco/engram/cmd/engram/init"
	"github.com/papercomputeco/engram/pkg/config"
)

func TestInitCmd(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Init Command Suite")
}

var _ = Describe("NewInitCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := initcmder.NewInitCmd()
		Expect(cmd.Use).To(Equal("init"))
	})

	It("accepts zero arguments", func() {
		cmd := initcmder.NewInitCmd()
		err := cmd.Args(cmd, []string{})
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects any arguments", func() {
		cmd := initcmder.NewInitCmd()
		err := cmd.Args(cmd, []string{"extra"})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Init command execution", func() {
	var (
		tmpDir  string
		origDir string
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "engram-init-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		err = os.Chdir(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		err := os.Chdir(origDir)
		Expect(err).NotTo(HaveOccurred())
		os.RemoveAll(tmpDir)
	})

	It("creates the .engram directory with a default config", func() {
		cmd := initcmder.NewInitCmd()
		cmd.SetArgs([]string{})
		Expect(cmd.Execute()).To(Succeed())

		info, err := os.Stat(filepath.Join(tmpDir, ".engram"))
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())

		data, err := os.ReadFile(filepath.Join(tmpDir, ".engram", "config.toml"))
		Expect(err).NotTo(HaveOccurred())

		cfg, err := config.ParseConfigTOML(data)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.VectorStore.Provider).To(Equal("sqlitevec"))
		Expect(cfg.Embedding.Model).To(Equal("nomic-embed-text"))
	})

	It("is a no-op when the directory already exists", func() {
		Expect(os.MkdirAll(filepath.Join(tmpDir, ".engram"), 0o755)).To(Succeed())

		cmd := initcmder.NewInitCmd()
		cmd.SetArgs([]string{})
		Expect(cmd.Execute()).To(Succeed())

		// Existing directory is left alone; no config is written.
		_, err := os.Stat(filepath.Join(tmpDir, ".engram", "config.toml"))
		Expect(os.IsNotExist(err)).To(BeTrue())
	})
})
