package run

import (
	"encoding/json"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/carina-io/sheepdog/pkg/vdi"
)

var volumeFlags struct {
	snapshotID string
	all        bool
	json       bool
}

var createCmd = &cobra.Command{
	Use:     "create NAME SIZE",
	Short:   "Create a VDI, SIZE in bytes or with a suffix such as 10G",
	Example: "  sheepdog-admin create vol1 10G",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return manager.CreateVolume(args[0], vdi.ParseSize(args[1]))
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List VDIs",
	Long: `List VDIs. Snapshots share the name of their base VDI, without --all only
the last record of each name is shown.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var records []vdi.VolumeRecord
		if volumeFlags.all {
			r, err := manager.ListVolumeRecords()
			if err != nil {
				return err
			}
			records = r
		} else {
			vdis, err := manager.ListVolumes()
			if err != nil {
				return err
			}
			for _, r := range vdis {
				records = append(records, r)
			}
			sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
		}

		out := cmd.OutOrStdout()
		if volumeFlags.json {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if records == nil {
				records = []vdi.VolumeRecord{}
			}
			return enc.Encode(records)
		}

		w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tID\tKIND\tSIZE\tUSED\tSHARED\tCREATED\tVDI_ID")
		for _, r := range records {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				r.Name, r.ID, r.Kind(), r.Size, r.Used, r.Shared, r.CreationTime, r.VdiID)
		}
		return w.Flush()
	},
}

var existsCmd = &cobra.Command{
	Use:   "exists NAME",
	Short: "Print whether a VDI exists, exit status 1 when it does not",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ok, err := manager.VolumeExists(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ok)
		if !ok {
			return errVolumeNotFound
		}
		return nil
	},
}

var resizeCmd = &cobra.Command{
	Use:   "resize NAME SIZE",
	Short: "Resize an existing VDI",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return manager.ResizeVolume(args[0], vdi.ParseSize(args[1]))
	},
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot NAME",
	Short: "Snapshot a VDI, sheepdog assigns the id unless --snapshot-id is given",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return manager.CreateSnapshot(args[0], volumeFlags.snapshotID)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a VDI, or one of its snapshots with --snapshot-id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return manager.DeleteVolume(args[0], volumeFlags.snapshotID)
	},
}

var cloneCmd = &cobra.Command{
	Use:     "clone SOURCE DEST",
	Short:   "Create DEST from snapshot --snapshot-id of SOURCE",
	Example: "  sheepdog-admin clone vol1 vol2 --snapshot-id 2",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return manager.CloneVolume(args[0], volumeFlags.snapshotID, args[1])
	},
}

func init() {
	for _, c := range []*cobra.Command{snapshotCmd, deleteCmd, cloneCmd} {
		c.Flags().StringVarP(&volumeFlags.snapshotID, "snapshot-id", "s", "", "Snapshot id")
	}
	_ = cloneCmd.MarkFlagRequired("snapshot-id")

	listCmd.Flags().BoolVar(&volumeFlags.all, "all", false, "Show every record, including snapshots hidden by their base name")
	listCmd.Flags().BoolVar(&volumeFlags.json, "json", false, "Print JSON")
}
