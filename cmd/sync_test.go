package cmd

import (
	"errors"
	"fmt"
	"testing"

	"cardsync/core/catalog"
	"cardsync/core/reconcile"
	"cardsync/feature/images"
	"cardsync/feature/run"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestPrintSyncReport_ListsEveryFailure(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)

	report := &images.Report{}
	for i := 1; i <= 8; i++ {
		number := fmt.Sprintf("hSD01-%03d", i)
		report.Outcomes = append(report.Outcomes, images.Outcome{
			Item:   reconcile.WorkItem{Source: "https://img/" + number + ".png"},
			Status: images.StatusFetchFailed,
			Err:    errors.New("not found"),
		})
		report.Outcomes[i-1].Item.Asset.Key = catalog.Key{Number: number}
		report.Failed++
	}
	report.Outcomes = append(report.Outcomes, images.Outcome{Status: images.StatusWritten})
	report.Written++

	printSyncReport(zap.New(core), &run.Report{Images: report})

	failed := logs.FilterMessage("Image failed").All()
	assert.Len(t, failed, 8)
	assert.Equal(t, "hSD01-008#0", failed[7].ContextMap()["key"])
	assert.Equal(t, 1, logs.FilterMessage("Image report").Len())
}

func TestPrintSyncReport_Nil(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	printSyncReport(zap.New(core), nil)
	assert.Equal(t, 0, logs.Len())
}
