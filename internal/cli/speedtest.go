package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nsa09-nsa09/splitup-frontend/internal/domain"
)

const speedTestHeader = "ID\tCITY\tPROVIDER\tDOWN MBPS\tUP MBPS\tPING MS\tLAT\tLNG"

func (a *App) renderSpeedTests(rows []domain.SpeedTestResult) error {
	return a.render(rows, speedTestHeader, func(emit func(...string)) {
		for _, r := range rows {
			emit(fmtID(r.ID), orDash(r.City), r.Provider, fmtFloat(r.DownloadMbps), fmtFloat(r.UploadMbps), fmtFloat(r.PingMs),
				strconv.FormatFloat(r.Latitude, 'f', 4, 64), strconv.FormatFloat(r.Longitude, 'f', 4, 64))
		}
	})
}

func (a *App) speedTestCommand() *cobra.Command {
	list := func(cmd *cobra.Command, _ []string) error {
		rows, err := a.client.SpeedTest.GetAll(cmd.Context())
		if err != nil {
			return err
		}
		return a.renderSpeedTests(rows)
	}
	root := &cobra.Command{
		Use:   "speedtest",
		Short: "Crowd-sourced connection measurements",
		Args:  exactArgs(0),
		RunE:  list,
	}

	var in domain.SpeedTestInput
	submit := &cobra.Command{
		Use:   "submit",
		Short: "Record one measurement",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.client.SpeedTest.Submit(cmd.Context(), in)
			if err != nil {
				return err
			}
			return a.renderSpeedTests([]domain.SpeedTestResult{*res})
		},
	}
	sf := submit.Flags()
	sf.Float64Var(&in.Latitude, "lat", 0, "latitude")
	sf.Float64Var(&in.Longitude, "lng", 0, "longitude")
	sf.StringVar(&in.City, "city", "", "city")
	sf.StringVar(&in.Provider, "provider", "", "network provider")
	sf.Float64Var(&in.DownloadMbps, "download", 0, "download speed, Mbps")
	sf.Float64Var(&in.UploadMbps, "upload", 0, "upload speed, Mbps")
	sf.Float64Var(&in.PingMs, "ping", 0, "ping, ms")
	_ = submit.MarkFlagRequired("provider")

	var filter domain.SpeedTestFilter
	filterCmd := &cobra.Command{
		Use:   "filter",
		Short: "List measurements by city and/or provider",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows, err := a.client.SpeedTest.GetFiltered(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return a.renderSpeedTests(rows)
		},
	}
	filterCmd.Flags().StringVar(&filter.City, "city", "", "city, case-insensitive")
	filterCmd.Flags().StringVar(&filter.Provider, "provider", "", "provider, case-insensitive")

	var box domain.Bounds
	bounds := &cobra.Command{
		Use:   "bounds",
		Short: "List measurements inside a bounding box",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows, err := a.client.SpeedTest.GetInBounds(cmd.Context(), box)
			if err != nil {
				return err
			}
			return a.renderSpeedTests(rows)
		},
	}
	bf := bounds.Flags()
	bf.Float64Var(&box.MinLat, "min-lat", 0, "southern edge")
	bf.Float64Var(&box.MaxLat, "max-lat", 0, "northern edge")
	bf.Float64Var(&box.MinLng, "min-lng", 0, "western edge")
	bf.Float64Var(&box.MaxLng, "max-lng", 0, "eastern edge")
	for _, name := range []string{"min-lat", "max-lat", "min-lng", "max-lng"} {
		_ = bounds.MarkFlagRequired(name)
	}

	var by string
	stats := &cobra.Command{
		Use:   "stats",
		Short: "Average speeds per city or per provider",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				rows []domain.SpeedTestStats
				err  error
			)
			switch strings.ToLower(strings.TrimSpace(by)) {
			case "city":
				rows, err = a.client.SpeedTest.StatsByCity(cmd.Context())
			case "provider":
				rows, err = a.client.SpeedTest.StatsByProvider(cmd.Context())
			default:
				return domain.NewValidationError("by", "must be city or provider")
			}
			if err != nil {
				return err
			}
			return a.render(rows, strings.ToUpper(by)+"\tTESTS\tAVG DOWN\tAVG UP\tAVG PING\tMAX DOWN", func(emit func(...string)) {
				for _, s := range rows {
					emit(s.Key, strconv.Itoa(s.Count), fmtFloat(s.AvgDownload), fmtFloat(s.AvgUpload), fmtFloat(s.AvgPing), fmtFloat(s.MaxDownload))
				}
			})
		},
	}
	stats.Flags().StringVar(&by, "by", "city", "group by city or provider")

	root.AddCommand(
		&cobra.Command{Use: "list", Short: "List all measurements", Args: exactArgs(0), RunE: list},
		submit,
		filterCmd,
		bounds,
		stats,
	)
	return root
}
