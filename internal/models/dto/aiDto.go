package dto

import (
	"encoding/json"
	"fmt"
	"strings"

	"thepup/internal/catalog"
	"thepup/internal/models/domain"
)

// FlexibleStringSlice — тип, который при десериализации принимает как строку, так и массив строк.
// Строка вида "a, b" разбивается по запятым.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	// Пробуем как массив строк
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*f = arr
		return nil
	}

	// Пробуем как одну строку
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = catalog.SplitTags(s)
		return nil
	}

	return fmt.Errorf("tags: expected string or []string, got %s", string(data))
}

// String возвращает теги в каноническом виде для хранения.
func (f FlexibleStringSlice) String() string {
	return catalog.JoinTags(f)
}

// EnrichmentResponseSchema — структурированный ответ AI для импортированного черновика.
type EnrichmentResponseSchema struct {
	Title    string              `json:"title" description:"Короткий заголовок на английском без кликбейта"`
	Summary  string              `json:"summary" description:"Краткое описание в 1-2 предложения"`
	Category string              `json:"category" description:"Одна категория: concert, fanmeet, birthday, popup, music, variety, news"`
	Tags     FlexibleStringSlice `json:"tags" description:"Имена артистов и групп, фандомы, площадки"`
}

// Enrichment — очищенный результат обогащения, который применяется к записи.
type Enrichment struct {
	Title    string
	Summary  string
	Category string
	Tags     string
}

func (e EnrichmentResponseSchema) ToEnrichment() Enrichment {
	return Enrichment{
		Title:    strings.TrimSpace(e.Title),
		Summary:  strings.TrimSpace(e.Summary),
		Category: strings.ToLower(strings.TrimSpace(e.Category)),
		Tags:     e.Tags.String(),
	}
}

// ApplyToNews применяет обогащение к новости. Обновляются только непустые поля,
// заголовок меняется, только если исходный пустой.
func (e Enrichment) ApplyToNews(n domain.News) domain.News {
	n.Title = Pick(n.Title, e.Title)
	n.Summary = Pick(e.Summary, n.Summary)
	if n.Category == "" {
		n.Category = e.Category
	}
	n.Tags = MergeTags(n.Tags, e.Tags)
	return n
}

// ApplyToEvent применяет обогащение к событию.
func (e Enrichment) ApplyToEvent(ev domain.Event) domain.Event {
	ev.Title = Pick(ev.Title, e.Title)
	if strings.TrimSpace(ev.Description) == "" {
		ev.Description = e.Summary
	}
	if ev.Category == "" {
		ev.Category = e.Category
	}
	ev.Tags = MergeTags(ev.Tags, e.Tags)
	return ev
}

// MergeTags объединяет существующие теги с новыми без дубликатов.
func MergeTags(existing, extra string) string {
	if strings.TrimSpace(extra) == "" {
		return catalog.NormalizeTags(existing)
	}
	return catalog.NormalizeTags(existing + "," + extra)
}

// Pick возвращает value, если оно непустое, иначе fallback.
func Pick(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}
