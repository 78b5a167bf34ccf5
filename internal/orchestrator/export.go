package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/feedpipe/catalog-worker/internal/exportengine"
	"github.com/feedpipe/catalog-worker/internal/finalizer"
	"github.com/feedpipe/catalog-worker/internal/locationindex"
	"github.com/feedpipe/catalog-worker/internal/marketplace"
	"github.com/feedpipe/catalog-worker/internal/pipeline"
	"github.com/feedpipe/catalog-worker/internal/storage"
	"github.com/feedpipe/catalog-worker/pkg/log"
	"github.com/feedpipe/catalog-worker/pkg/schema"
)

const templatesPrefix = "templates"

// stepSpecKey maps a pipeline.Step to its exportengine.Specs entry.
func stepSpecKey(step pipeline.Step) string { return string(step) }

// runExport renders one marketplace spreadsheet: load the merged
// product table, resolve per-material stock via the location feed and
// marketplace.ResolveStock, join against the fee config, and run the
// full exportengine write/verify/upload protocol.
func (o *Orchestrator) runExport(ctx context.Context, req schema.InvocationRequest, step pipeline.Step) (string, error) {
	spec, ok := exportengine.Specs[stepSpecKey(step)]
	if !ok {
		return "", pipeline.ErrRequiredSheetAbsent("no template spec for step " + string(step))
	}

	products, err := loadProductTable(ctx, o.Objects, o.ExportsBucket, req.RunID)
	if err != nil {
		return "", err
	}

	locData, err := o.Objects.Get(ctx, o.ImportBucket, "stock-location/runs/"+req.RunID+".txt")
	if err != nil {
		return "", pipeline.ErrArtifactMissing("stock-location feed: " + err.Error())
	}
	locations, warnings, err := locationindex.Build(locData)
	if err != nil {
		return "", err
	}
	log.Event(req.RunID, "info", "location feed parsed", warningsToFields(warnings))

	params, err := fieldsForStep(step, req.FeeConfig)
	if err != nil {
		return "", err
	}

	var rows []exportengine.Row
	for _, p := range products {
		loc := locations[p.Matnr]
		resolution := marketplace.ResolveStock(marketplace.StockInput{
			StockIT:    loc.StockIT,
			StockEU:    loc.StockEU,
			IncludeEU:  params.includeEU,
			ItPrepDays: params.itPrepDays,
			EuPrepDays: params.euPrepDays,
		})
		if !resolution.ShouldExport {
			continue
		}

		if step == pipeline.StepExportEanXlsx {
			rows = append(rows, exportengine.Row{
				p.Matnr, p.MPN, p.EAN, p.Description,
				strconv.FormatInt(p.Stock, 10),
				strconv.FormatFloat(p.ListPrice, 'f', 2, 64),
				strconv.FormatFloat(p.BestPrice, 'f', 2, 64),
				strconv.FormatFloat(p.Surcharge, 'f', 2, 64),
			})
			continue
		}

		price := p.BestPrice
		if price <= 0 {
			price = p.ListPrice
		}
		exportPrice := price + params.feeDrev + params.feeMkt + params.shippingCost

		rows = append(rows, exportengine.Row{
			p.Matnr, p.EAN, p.Description,
			strconv.FormatInt(resolution.ExportQty, 10),
			strconv.FormatFloat(exportPrice, 'f', 2, 64),
			strconv.Itoa(resolution.LeadDays),
		})
	}

	outputKey := fmt.Sprintf("runs/%s/%s.xlsx", req.RunID, spec.Name)
	if err := exportengine.Export(ctx, o.Objects, o.ExportsBucket, o.ExportsBucket, outputKey, spec, rows); err != nil {
		return "", err
	}

	// Also publish under the fixed flat name at the bucket root
	// (spec.md §6's "fixed flat names at the bucket root"), so a
	// downstream consumer can always fetch the latest export without
	// knowing the run_id.
	written, err := o.Objects.Get(ctx, o.ExportsBucket, outputKey)
	if err != nil {
		return "", err
	}
	if err := o.Objects.Put(ctx, o.ExportsBucket, spec.Name+".xlsx", written, exportengine.XlsxContentType); err != nil {
		log.Warnf("orchestrator: could not refresh flat alias for %s: %s", spec.Name, err.Error())
	}

	if err := o.Checkpoint.SetCurrentStep(ctx, req.RunID, req.LockInvocationID, string(step)); err != nil {
		return "", err
	}
	log.Event(req.RunID, "info", "export completed", map[string]interface{}{"step": string(step), "rows": len(rows)})
	return "completed", nil
}

type exportParams struct {
	feeDrev, feeMkt, shippingCost float64
	includeEU                     bool
	itPrepDays, euPrepDays        int
}

func fieldsForStep(step pipeline.Step, cfg schema.FeeConfig) (exportParams, error) {
	switch step {
	case pipeline.StepExportMediaworld:
		return exportParams{
			feeDrev: overrideOr(cfg.MediaworldFeeDrev, cfg.FeeDrev), feeMkt: overrideOr(cfg.MediaworldFeeMkt, cfg.FeeMkt),
			shippingCost: overrideOr(cfg.MediaworldShippingCost, cfg.ShippingCost),
			includeEU:    cfg.MediaworldIncludeEu, itPrepDays: cfg.MediaworldItPrepDays, euPrepDays: cfg.MediaworldEuPrepDays,
		}, nil
	case pipeline.StepExportEprice:
		return exportParams{
			feeDrev: overrideOr(cfg.EpriceFeeDrev, cfg.FeeDrev), feeMkt: overrideOr(cfg.EpriceFeeMkt, cfg.FeeMkt),
			shippingCost: overrideOr(cfg.EpriceShippingCost, cfg.ShippingCost),
			includeEU:    cfg.EpriceIncludeEu, itPrepDays: cfg.EpriceItPrepDays, euPrepDays: cfg.EpriceEuPrepDays,
		}, nil
	case pipeline.StepExportAmazon:
		return exportParams{
			feeDrev: cfg.AmazonFeeDrev, feeMkt: cfg.AmazonFeeMkt, shippingCost: cfg.AmazonShippingCost,
			includeEU: true, itPrepDays: cfg.AmazonItPrepDays, euPrepDays: cfg.AmazonEuPrepDays,
		}, nil
	case pipeline.StepExportEanXlsx:
		return exportParams{feeDrev: cfg.FeeDrev, feeMkt: cfg.FeeMkt, shippingCost: cfg.ShippingCost, includeEU: true}, nil
	default:
		return exportParams{}, pipeline.ErrPricingConfigInvalid("no fee mapping for step " + string(step))
	}
}

func overrideOr(override *float64, fallback float64) float64 {
	if override != nil {
		return *override
	}
	return fallback
}

func warningsToFields(w schema.LocationWarnings) map[string]interface{} {
	return map[string]interface{}{
		"missingFile": w.MissingFile, "parseFailure": w.ParseFailure, "missingRow": w.MissingRow,
		"splitDisagreement": w.SplitDisagreement, "multiMpnPerMatnr": w.MultiMPNPerMatnr,
		"orphanLocation4255": w.OrphanLocation4255, "decodeFallbackUsed": w.DecodeFallbackUsed,
		"invalidStockValue": w.InvalidStockValue,
	}
}

// runComputeTemplateChecksums recomputes the SHA-256 digest of every
// pinned template and writes a reference JSON file, the same job
// tools/compute-template-checksums performs standalone when a template
// is first frozen.
func (o *Orchestrator) runComputeTemplateChecksums(ctx context.Context, req schema.InvocationRequest) (string, error) {
	digests := map[string]string{}
	for key, spec := range exportengine.Specs {
		raw, err := o.Objects.Get(ctx, o.ExportsBucket, spec.TemplatePath)
		if err != nil {
			return "", pipeline.ErrTemplateEmpty(spec.Name + ": " + err.Error())
		}
		sum := sha256.Sum256(raw)
		digests[key] = hex.EncodeToString(sum[:])
	}

	data, err := json.MarshalIndent(digests, "", "  ")
	if err != nil {
		return "", err
	}
	if err := o.Objects.Put(ctx, o.ExportsBucket, templatesPrefix+"/checksums.json", data, "application/json"); err != nil {
		return "", err
	}

	log.Event(req.RunID, "info", "template checksums recomputed", map[string]interface{}{"count": len(digests)})
	return "completed", nil
}

// runExportEan writes the merged product table verbatim under the
// flat, marketplace-agnostic export path spec.md §6 describes
// ("fixed flat names at the bucket root"), ahead of the templated
// exports that each project it into a marketplace-specific shape.
func (o *Orchestrator) runExportEan(ctx context.Context, req schema.InvocationRequest) (string, error) {
	data, err := o.Objects.Get(ctx, o.ExportsBucket, finalizer.ProductTablePath(req.RunID))
	if err != nil {
		return "", pipeline.ErrArtifactMissing("product table: " + err.Error())
	}

	if err := o.Objects.Put(ctx, o.ExportsBucket, fmt.Sprintf("runs/%s/ean_export.tsv", req.RunID), data, "text/tab-separated-values"); err != nil {
		return "", err
	}
	if err := o.Objects.Put(ctx, o.ExportsBucket, "ean_export.tsv", data, "text/tab-separated-values"); err != nil {
		return "", err
	}

	if err := o.Checkpoint.SetCurrentStep(ctx, req.RunID, req.LockInvocationID, string(pipeline.StepExportEan)); err != nil {
		return "", err
	}
	return "completed", nil
}

func loadProductTable(ctx context.Context, store storage.ObjectStore, bucket, runID string) ([]schema.ProductRow, error) {
	data, err := store.Get(ctx, bucket, finalizer.ProductTablePath(runID))
	if err != nil {
		return nil, pipeline.ErrArtifactMissing("product table: " + err.Error())
	}

	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	var rows []schema.ProductRow
	for i, line := range lines {
		if i == 0 || line == "" {
			continue
		}
		f := strings.Split(line, "\t")
		if len(f) < 8 {
			continue
		}
		stock, _ := strconv.ParseInt(f[4], 10, 64)
		lp, _ := strconv.ParseFloat(f[5], 64)
		bp, _ := strconv.ParseFloat(f[6], 64)
		sur, _ := strconv.ParseFloat(f[7], 64)
		rows = append(rows, schema.ProductRow{
			Matnr: f[0], MPN: f[1], EAN: f[2], Description: f[3],
			Stock: stock, ListPrice: lp, BestPrice: bp, Surcharge: sur,
		})
	}
	return rows, nil
}
