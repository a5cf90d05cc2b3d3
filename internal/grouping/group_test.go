package grouping

import (
	"log/slog"
	"reflect"
	"testing"
)

func page(t *testing.T, num int, payload string) PageRecord {
	t.Helper()
	return PageRecord{PageNum: num, Payload: mustFields(t, payload)}
}

func quietOpts() Options {
	return Options{Logger: slog.New(slog.DiscardHandler)}
}

func mustGroup(t *testing.T, pages []PageRecord) *Result {
	t.Helper()
	res, err := Group(pages, quietOpts())
	if err != nil {
		t.Fatalf("Group failed: %v", err)
	}
	return res
}

func TestGroupFullIdentity(t *testing.T) {
	res := mustGroup(t, []PageRecord{
		page(t, 1, `{"first_name": "Jane", "last_name": "Doe", "dob": "1980-01-01"}`),
		page(t, 2, `{"first_name": "jane", "last_name": "DOE", "dob": "01/01/1980"}`),
	})

	if len(res.Patients) != 1 {
		t.Fatalf("expected 1 patient group, got %d", len(res.Patients))
	}
	grp, ok := res.Patients["jane_doe_1980_01_01"]
	if !ok {
		t.Fatalf("expected key jane_doe_1980_01_01, got %v", keysOf(res.Patients))
	}
	if !reflect.DeepEqual(grp.Pages, []int{1, 2}) {
		t.Errorf("expected pages [1 2], got %v", grp.Pages)
	}
	if grp.DOB != "1980_01_01" {
		t.Errorf("expected group DOB 1980_01_01, got %q", grp.DOB)
	}
}

func TestGroupDeferredNameMatch(t *testing.T) {
	res := mustGroup(t, []PageRecord{
		page(t, 1, `{"first_name": "Jane", "last_name": "Doe", "dob": "1980-01-01"}`),
		page(t, 2, `{"first_name": "jane", "last_name": "DOE", "dob": "01/01/1980"}`),
		page(t, 3, `{"first_name": "Jane", "last_name": "Doe"}`),
	})

	grp := res.Patients["jane_doe_1980_01_01"]
	if grp == nil {
		t.Fatalf("expected group jane_doe_1980_01_01, got %v", keysOf(res.Patients))
	}
	if !reflect.DeepEqual(grp.Pages, []int{1, 2, 3}) {
		t.Errorf("expected pages [1 2 3], got %v", grp.Pages)
	}
}

func TestGroupDeferredMRNMatch(t *testing.T) {
	res := mustGroup(t, []PageRecord{
		page(t, 1, `{"first_name": "Jane", "last_name": "Doe", "dob": "1980-01-01", "mrn": "MRN778"}`),
		page(t, 2, `{"medical_record_number": "MRN778"}`),
	})

	grp := res.Patients["jane_doe_1980_01_01"]
	if grp == nil {
		t.Fatalf("expected group jane_doe_1980_01_01, got %v", keysOf(res.Patients))
	}
	if !reflect.DeepEqual(grp.Pages, []int{1, 2}) {
		t.Errorf("expected MRN page to join group, got %v", grp.Pages)
	}
	if !grp.hasMRN("MRN778") {
		t.Error("expected MRN778 in mrn_seen")
	}
}

func TestGroupDeferredDOBMatch(t *testing.T) {
	res := mustGroup(t, []PageRecord{
		page(t, 1, `{"first_name": "Jane", "last_name": "Doe", "dob": "1980-01-01"}`),
		page(t, 2, `{"date of birth": "01/01/1980"}`),
	})

	grp := res.Patients["jane_doe_1980_01_01"]
	if grp == nil {
		t.Fatalf("expected group jane_doe_1980_01_01, got %v", keysOf(res.Patients))
	}
	if !reflect.DeepEqual(grp.Pages, []int{1, 2}) {
		t.Errorf("expected DOB page to join group, got %v", grp.Pages)
	}
}

func TestGroupNewGroupSynthesis(t *testing.T) {
	res := mustGroup(t, []PageRecord{
		page(t, 1, `{"mrn": "Z9"}`),
		page(t, 2, `{"dob": "1975-02-14"}`),
	})

	if res.Patients["mrn_Z9"] == nil {
		t.Errorf("expected mrn_Z9 group, got %v", keysOf(res.Patients))
	}
	if res.Patients["dob_1975_02_14"] == nil {
		t.Errorf("expected dob_1975_02_14 group, got %v", keysOf(res.Patients))
	}
}

func TestGroupScheduleKeywords(t *testing.T) {
	t.Run("primary keyword wins over identity", func(t *testing.T) {
		res := mustGroup(t, []PageRecord{
			page(t, 1, `{"document_type": "surgery schedule", "first_name": "Jane", "dob": "1980-01-01"}`),
		})
		if !reflect.DeepEqual(res.SurgerySchedule, []int{1}) {
			t.Errorf("expected schedule [1], got %v", res.SurgerySchedule)
		}
		if len(res.Patients) != 0 {
			t.Errorf("expected no patient groups, got %v", keysOf(res.Patients))
		}
	})

	t.Run("secondary keyword without identity", func(t *testing.T) {
		res := mustGroup(t, []PageRecord{
			page(t, 1, `{"category": "surgery consent form"}`),
		})
		if !reflect.DeepEqual(res.SurgerySchedule, []int{1}) {
			t.Errorf("expected schedule [1], got %v", res.SurgerySchedule)
		}
	})
}

func TestGroupDropsPages(t *testing.T) {
	t.Run("no identity and no keywords", func(t *testing.T) {
		res := mustGroup(t, []PageRecord{
			page(t, 1, `{"notes": "blank page"}`),
		})
		if len(res.Patients) != 0 || len(res.SurgerySchedule) != 0 {
			t.Fatalf("expected page to be dropped, got %+v", res)
		}
		if !reflect.DeepEqual(res.Dropped, []int{1}) {
			t.Errorf("expected dropped [1], got %v", res.Dropped)
		}
	})

	t.Run("unparseable DOB with nothing else", func(t *testing.T) {
		res := mustGroup(t, []PageRecord{
			page(t, 1, `{"dob": "??"}`),
		})
		if len(res.Patients) != 0 {
			t.Fatalf("expected no groups, got %v", keysOf(res.Patients))
		}
		if !reflect.DeepEqual(res.Dropped, []int{1}) {
			t.Errorf("expected dropped [1], got %v", res.Dropped)
		}
	})
}

func TestGroupMalformedInput(t *testing.T) {
	_, err := Group([]PageRecord{{PageNum: 1, Payload: nil}}, quietOpts())
	if err == nil {
		t.Fatal("expected error for nil payload")
	}
}

func TestGroupPartitionInvariants(t *testing.T) {
	pages := []PageRecord{
		page(t, 1, `{"first_name": "Jane", "last_name": "Doe", "dob": "1980-01-01"}`),
		page(t, 2, `{"document_type": "surgery schedule"}`),
		page(t, 3, `{"first_name": "Jane", "last_name": "Doe"}`),
		page(t, 4, `{"first_name": "Bob", "last_name": "Smith", "dob": "1975-02-14", "mrn": "B42"}`),
		page(t, 5, `{"mrn": "B42"}`),
		page(t, 6, `{"notes": "nothing here"}`),
	}
	res := mustGroup(t, pages)

	seen := make(map[int]int)
	for _, p := range res.SurgerySchedule {
		seen[p]++
	}
	for _, grp := range res.Patients {
		for _, p := range grp.Pages {
			seen[p]++
		}
	}
	for _, p := range res.Dropped {
		seen[p]++
	}
	for _, p := range pages {
		if seen[p.PageNum] != 1 {
			t.Errorf("page %d accounted for %d times, want exactly once", p.PageNum, seen[p.PageNum])
		}
	}
}

func TestGroupIdempotence(t *testing.T) {
	pages := []PageRecord{
		page(t, 1, `{"first_name": "Jane", "last_name": "Doe", "dob": "1980-01-01"}`),
		page(t, 2, `{"document_type": "surgery schedule"}`),
		page(t, 3, `{"first_name": "Jane", "last_name": "Doe"}`),
		page(t, 4, `{"first_name": "Bob", "last_name": "Smith", "dob": "1975-02-14"}`),
	}

	first := mustGroup(t, pages)
	second := mustGroup(t, pages)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("rerun produced different grouping:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func keysOf(m map[string]*PatientGroup) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
