// Package report renders competitor analysis results to files.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/trialscout/trialscout/internal/model"
)

var competitorHeader = []string{
	"NCT ID", "Title", "Phase", "Status", "Sponsor",
	"Similarity", "Biomarker", "Stage", "Geographic", "Phase Proximity",
	"Overlapping Biomarkers", "Overlapping States", "Study URL",
}

// WriteCompetitorXLSX writes a workbook with a Competitors sheet and an
// Insights sheet to the given path.
func WriteCompetitorXLSX(path string, resp *model.CompetitorAnalysisResponse) error {
	f := xlsx.NewFile()

	if err := addCompetitorSheet(f, resp.Competitors); err != nil {
		return err
	}
	if err := addInsightsSheet(f, resp.Insights); err != nil {
		return err
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}

func addCompetitorSheet(f *xlsx.File, competitors []model.CompetitorMatch) error {
	sheet, err := f.AddSheet("Competitors")
	if err != nil {
		return eris.Wrap(err, "report: add competitors sheet")
	}

	addStringRow(sheet, competitorHeader...)
	for _, c := range competitors {
		row := sheet.AddRow()
		row.AddCell().SetString(c.NCTID)
		row.AddCell().SetString(c.Title)
		row.AddCell().SetString(c.Phase)
		row.AddCell().SetString(c.Status)
		row.AddCell().SetString(c.Sponsor)
		row.AddCell().SetFloat(c.SimilarityScore)
		row.AddCell().SetFloat(c.BiomarkerOverlap)
		row.AddCell().SetFloat(c.StageOverlap)
		row.AddCell().SetFloat(c.GeographicOverlap)
		row.AddCell().SetFloat(c.PhaseProximity)
		row.AddCell().SetString(strings.Join(c.OverlappingBiomarkers, ", "))
		row.AddCell().SetString(strings.Join(c.OverlappingLocations, ", "))
		row.AddCell().SetString(c.StudyURL)
	}
	return nil
}

func addInsightsSheet(f *xlsx.File, insights model.MarketInsights) error {
	sheet, err := f.AddSheet("Insights")
	if err != nil {
		return eris.Wrap(err, "report: add insights sheet")
	}

	addStringRow(sheet, "Metric", "Value")
	addStringRow(sheet, "Total competing trials", fmt.Sprintf("%d", insights.TotalCompetingTrials))
	addStringRow(sheet, "Average similarity", fmt.Sprintf("%.3f", insights.AvgSimilarityScore))

	addStringRow(sheet)
	addStringRow(sheet, "Top Sponsors", "Trials")
	for _, s := range insights.TopSponsors {
		addStringRow(sheet, s.Name, fmt.Sprintf("%d", s.Count))
	}

	addStringRow(sheet)
	addStringRow(sheet, "Geographic Hotspots", "Trials")
	for _, s := range insights.GeographicHotspots {
		addStringRow(sheet, s.State, fmt.Sprintf("%d", s.Count))
	}

	addStringRow(sheet)
	addStringRow(sheet, "Phase", "Trials")
	for _, phase := range sortedKeys(insights.PhaseDistribution) {
		addStringRow(sheet, phase, fmt.Sprintf("%d", insights.PhaseDistribution[phase]))
	}

	addStringRow(sheet)
	addStringRow(sheet, "Common Biomarkers", "Trials")
	for _, b := range insights.CommonBiomarkers {
		addStringRow(sheet, b.Biomarker, fmt.Sprintf("%d", b.Count))
	}
	return nil
}

func addStringRow(sheet *xlsx.Sheet, cells ...string) {
	row := sheet.AddRow()
	for _, c := range cells {
		row.AddCell().SetString(c)
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
