package main

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newStatsCmd())
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <volume>",
		Short: "Show volume geometry and index statistics",
		Long: `The stats command reports the volume's NTFS geometry alongside the
contents of a freshly built index.

Example:
  everidx stats C:
  everidx stats volume.img --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVolumeStats(args[0])
		},
	}
}

type volumeStats struct {
	Volume          string `json:"volume"`
	BytesPerSector  int    `json:"bytes_per_sector"`
	BytesPerCluster int    `json:"bytes_per_cluster"`
	BytesPerRecord  int    `json:"bytes_per_record"`
	MFTStartLCN     int64  `json:"mft_start_lcn"`
	VolumeSize      int64  `json:"volume_size"`
	MFTRecords      uint64 `json:"mft_records"`
	Records         int    `json:"indexed_records"`
	Directories     int    `json:"directories"`
	Orphans         int    `json:"orphans"`
}

func runVolumeStats(spec string) error {
	vol, closeVol, err := openVolume(spec)
	if err != nil {
		return err
	}
	defer closeVol()

	idx, scanner, _, err := buildIndex(context.Background(), vol, 0)
	if err != nil {
		return err
	}

	geo := vol.Geometry()
	ist := idx.Stats()
	st := volumeStats{
		Volume:          spec,
		BytesPerSector:  geo.BytesPerSector,
		BytesPerCluster: geo.BytesPerCluster,
		BytesPerRecord:  geo.BytesPerRecord,
		MFTStartLCN:     geo.MFTStartLCN,
		VolumeSize:      geo.VolumeSize,
		MFTRecords:      scanner.RecordCount(),
		Records:         ist.Records,
		Directories:     ist.Directories,
		Orphans:         ist.Orphans,
	}
	if jsonOut {
		return printJSON(st)
	}

	printInfo("Volume %s\n", spec)
	printInfo("  sector size:   %d\n", st.BytesPerSector)
	printInfo("  cluster size:  %d\n", st.BytesPerCluster)
	printInfo("  record size:   %d\n", st.BytesPerRecord)
	printInfo("  MFT start LCN: %d\n", st.MFTStartLCN)
	if st.VolumeSize > 0 {
		printInfo("  volume size:   %s\n", humanize.Bytes(uint64(st.VolumeSize)))
	}
	printInfo("Index\n")
	printInfo("  MFT records:   %s\n", humanize.Comma(int64(st.MFTRecords)))
	printInfo("  indexed:       %s\n", humanize.Comma(int64(st.Records)))
	printInfo("  directories:   %s\n", humanize.Comma(int64(st.Directories)))
	printInfo("  orphans:       %s\n", humanize.Comma(int64(st.Orphans)))
	return nil
}
