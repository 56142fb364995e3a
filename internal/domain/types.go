package domain

// JobStatus tracks the lifecycle of a single subtraction build job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusRunning    JobStatus = "running"
	JobStatusSucceeded  JobStatus = "succeeded"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
	JobStatusCleaningUp JobStatus = "cleaning_up"
	JobStatusTerminated JobStatus = "terminated"
)

// Terminal reports whether a status is one of the pre-cleanup end states.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// Settings contains worker configuration persisted between runs.
type Settings struct {
	DataDir       string `json:"dataDir"`
	WorkDir       string `json:"workDir"`
	MongoURI      string `json:"mongoUri"`
	MongoDatabase string `json:"mongoDatabase"`
	Processes     int    `json:"processes"`
	Bowtie2Path   string `json:"bowtie2Path"`
}

// SubtractionJob is the shared state threaded through every pipeline step.
// All paths are resolved once during startup and read-only afterwards.
type SubtractionJob struct {
	SubtractionID string
	FileID        string

	SourcePath  string // uploaded FASTA at <dataDir>/files/<fileID>
	WorkingDir  string // ephemeral job directory at <workDir>/<subtractionID>
	FastaPath   string // staged uncompressed FASTA inside WorkingDir
	IndexPrefix string // bowtie2 output prefix inside WorkingDir
	FinalDir    string // permanent home at <dataDir>/subtractions/<normalized id>

	Procs int // upper bound for compression and indexing workers
}

// Composition holds the fraction of each nucleotide over all sequence
// characters in a FASTA file. Characters outside a/c/g/t are pooled under N.
type Composition struct {
	A float64 `bson:"a" json:"a"`
	C float64 `bson:"c" json:"c"`
	G float64 `bson:"g" json:"g"`
	T float64 `bson:"t" json:"t"`
	N float64 `bson:"n" json:"n"`
}

// LengthStats summarizes the sequence length distribution of a FASTA file.
type LengthStats struct {
	Min    int     `bson:"min" json:"min"`
	Max    int     `bson:"max" json:"max"`
	Mean   float64 `bson:"mean" json:"mean"`
	Median float64 `bson:"median" json:"median"`
}

// SubtractionRecord is the stored document describing one subtraction.
// Ready stays false until the alignment index exists on disk.
type SubtractionRecord struct {
	ID      string      `bson:"_id" json:"id"`
	GC      Composition `bson:"gc" json:"gc"`
	Count   int         `bson:"count" json:"count"`
	Lengths LengthStats `bson:"lengths" json:"lengths"`
	Ready   bool        `bson:"ready" json:"ready"`
}

// Job stores the identity and lifecycle status of the current build.
type Job struct {
	ID            string    `json:"id"`
	SubtractionID string    `json:"subtractionId"`
	Status        JobStatus `json:"status"`
}
