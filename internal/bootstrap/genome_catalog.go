package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"subtraction-builder/internal/domain"
)

var hostGenomeCatalog = []domain.HostGenomeOption{
	{
		ID:          "phix",
		Name:        "PhiX control v3",
		FileName:    "phix_control_v3.fna.gz",
		URL:         "https://ftp.ncbi.nlm.nih.gov/genomes/all/GCF/000/819/615/GCF_000819615.1_ViralProj14015/GCF_000819615.1_ViralProj14015_genomic.fna.gz",
		SizeLabel:   "~2 KB",
		Description: "Illumina sequencing control, useful for smoke-testing a worker.",
	},
	{
		ID:          "ecoli_k12",
		Name:        "E. coli K-12 MG1655",
		FileName:    "ecoli_k12_mg1655.fna.gz",
		URL:         "https://ftp.ncbi.nlm.nih.gov/genomes/all/GCF/000/005/845/GCF_000005845.2_ASM584v2/GCF_000005845.2_ASM584v2_genomic.fna.gz",
		SizeLabel:   "~1.4 MB",
		Description: "Common bacterial contaminant in library preps.",
	},
	{
		ID:          "yeast_s288c",
		Name:        "S. cerevisiae S288C",
		FileName:    "yeast_s288c.fna.gz",
		URL:         "https://ftp.ncbi.nlm.nih.gov/genomes/all/GCF/000/146/045/GCF_000146045.2_R64/GCF_000146045.2_R64_genomic.fna.gz",
		SizeLabel:   "~3.8 MB",
		Description: "Baker's yeast reference genome.",
	},
	{
		ID:          "arabidopsis_tair10",
		Name:        "A. thaliana TAIR10.1",
		FileName:    "arabidopsis_tair10.fna.gz",
		URL:         "https://ftp.ncbi.nlm.nih.gov/genomes/all/GCF/000/001/735/GCF_000001735.4_TAIR10.1/GCF_000001735.4_TAIR10.1_genomic.fna.gz",
		SizeLabel:   "~36 MB",
		Description: "Model plant host for plant virus sampling.",
	},
	{
		ID:          "human_grch38",
		Name:        "Human GRCh38.p14",
		FileName:    "human_grch38.fna.gz",
		URL:         "https://ftp.ncbi.nlm.nih.gov/genomes/all/GCF/000/001/405/GCF_000001405.40_GRCh38.p14/GCF_000001405.40_GRCh38.p14_genomic.fna.gz",
		SizeLabel:   "~940 MB",
		Description: "Full human reference for clinical sample subtraction.",
	},
}

// HostGenomes returns built-in reference genome presets for one-command
// downloads, marking the ones already present in the data files directory.
func (a *App) HostGenomes() []domain.HostGenomeOption {
	genomes := make([]domain.HostGenomeOption, len(hostGenomeCatalog))
	copy(genomes, hostGenomeCatalog)

	a.mu.Lock()
	dataDir := a.Settings.DataDir
	a.mu.Unlock()

	markDownloadedGenomes(genomes, filepath.Join(dataDir, "files"))
	return genomes
}

// FetchHostGenome downloads the selected genome into the data files
// directory and returns the file id a build can reference. A genome already
// on disk is not fetched again.
func (a *App) FetchHostGenome(ctx context.Context, genomeID string) (string, error) {
	id := strings.TrimSpace(genomeID)
	if id == "" {
		return "", fmt.Errorf("genome id is required")
	}

	genome, found := getHostGenomeByID(id)
	if !found {
		return "", fmt.Errorf("unknown genome id: %s", id)
	}

	a.mu.Lock()
	dataDir := a.Settings.DataDir
	a.mu.Unlock()

	filesDir := filepath.Join(dataDir, "files")
	if err := os.MkdirAll(filesDir, 0o755); err != nil {
		return "", fmt.Errorf("create files directory: %w", err)
	}

	targetPath := filepath.Join(filesDir, genome.FileName)
	if info, err := os.Stat(targetPath); err == nil && !info.IsDir() {
		a.log.Info("genome already present", "genome", genome.ID, "path", targetPath)
		return genome.FileName, nil
	}

	a.log.Info("fetching genome", "genome", genome.ID, "url", genome.URL, "size", genome.SizeLabel)
	if err := downloadURLToFile(ctx, targetPath, genome.URL); err != nil {
		return "", fmt.Errorf("fetch genome %s: %w", genome.Name, err)
	}
	return genome.FileName, nil
}

// getHostGenomeByID looks up a catalog entry.
func getHostGenomeByID(id string) (domain.HostGenomeOption, bool) {
	for _, genome := range hostGenomeCatalog {
		if genome.ID == id {
			return genome, true
		}
	}
	return domain.HostGenomeOption{}, false
}

// markDownloadedGenomes flags catalog entries whose file exists in filesDir.
func markDownloadedGenomes(genomes []domain.HostGenomeOption, filesDir string) {
	for i := range genomes {
		candidate := filepath.Join(filesDir, genomes[i].FileName)
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		genomes[i].Downloaded = true
		genomes[i].LocalPath = candidate
	}
}
