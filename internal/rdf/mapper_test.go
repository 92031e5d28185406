package rdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benangmerah/sekolah/internal/crawler"
	"github.com/benangmerah/sekolah/internal/place"
)

func scenarioFields() crawler.RawFieldMap {
	return crawler.RawFieldMap{
		"NPSN":           "12345678",
		"Propinsi":       "Prop. DKI Jakarta",
		"Kabupaten/Kota": "Kab. Test",
		"Kecamatan":      "Kec. Sample",
		"Email":          "a@b.com",
		"latitude":       "-6.2",
		"longitude":      "106.8",
	}
}

func find(triples []Triple, predicate string) []Triple {
	var out []Triple
	for _, tr := range triples {
		if tr.Predicate == predicate {
			out = append(out, tr)
		}
	}
	return out
}

func TestMapScenario(t *testing.T) {
	t.Parallel()

	triples := NewMapper().Map(scenarioFields())
	subject := "urn:npsn:12345678"
	for _, tr := range triples {
		require.Equal(t, subject, tr.Subject, "triple %s", tr)
	}

	email := find(triples, DapodikNamespace+"Email")
	require.Len(t, email, 1)
	assert.Equal(t, IRI("mailto:a@b.com"), email[0].Object)

	inside := find(triples, PredicateInsideRegion)
	require.Len(t, inside, 1)
	assert.Equal(t, IRI(place.Namespace+"dki-jakarta/kabupaten-administrasi-test/sample"), inside[0].Object)

	assert.Equal(t, []Triple{{subject, PredicateLatitude, Literal("-6.2")}}, find(triples, PredicateLatitude))
	assert.Equal(t, []Triple{{subject, PredicateLongitude, Literal("106.8")}}, find(triples, PredicateLongitude))

	// NPSN, Propinsi, KabupatenKota, Kecamatan, Email plus five fixed triples.
	assert.Len(t, triples, 10)
	assert.Len(t, find(triples, DapodikNamespace+"KabupatenKota"), 1)
}

func TestMapSkipsEmptyZeroAndCoordinates(t *testing.T) {
	t.Parallel()

	fields := scenarioFields()
	fields["Fax"] = ""
	fields["Jumlah Rombel"] = "0"
	fields["Luas Tanah"] = "00"

	triples := NewMapper().Map(fields)
	assert.Empty(t, find(triples, DapodikNamespace+"Fax"))
	assert.Empty(t, find(triples, DapodikNamespace+"JumlahRombel"))
	assert.Len(t, find(triples, DapodikNamespace+"LuasTanah"), 1)
	assert.Empty(t, find(triples, DapodikNamespace+"latitude"))
	assert.Empty(t, find(triples, DapodikNamespace+"longitude"))
}

func TestMapValueEncodings(t *testing.T) {
	t.Parallel()

	fields := crawler.RawFieldMap{
		"NPSN":                   "20100001",
		"Status Sekolah":         "NEGERI",
		"Jenjang Pendidikan":     "SD",
		"Waktu Penyelenggaraan":  "Pagi",
		"Website":                "sdn1.sch.id",
		"Alamat":                 "Jl. Merdeka No. 1",
		"Kode Pos":               "23111",
		"SK Pendirian (Tanggal)": "1970-01-01",
		"Propinsi":               "Prop. Aceh",
		"Kabupaten/Kota":         "Kota Banda Aceh",
		"Kecamatan":              "Kec. Baiturrahman",
	}
	triples := NewMapper().Map(fields)

	assert.Equal(t, IRI(DapodikNamespace+"NEGERI"), find(triples, DapodikNamespace+"StatusSekolah")[0].Object)
	assert.Equal(t, IRI(DapodikNamespace+"SD"), find(triples, DapodikNamespace+"JenjangPendidikan")[0].Object)
	assert.Equal(t, IRI(DapodikNamespace+"Pagi"), find(triples, DapodikNamespace+"WaktuPenyelenggaraan")[0].Object)
	assert.Equal(t, IRI("http://sdn1.sch.id"), find(triples, DapodikNamespace+"Website")[0].Object)
	assert.Equal(t, Literal("Jl. Merdeka No. 1"), find(triples, DapodikNamespace+"Alamat")[0].Object)
	assert.Equal(t, Literal("23111"), find(triples, DapodikNamespace+"KodePos")[0].Object)
	assert.Equal(t, Literal("1970-01-01"), find(triples, DapodikNamespace+"SKPendirianTanggal")[0].Object)
}

func TestMapSameAsRoundTrip(t *testing.T) {
	t.Parallel()

	for _, npsn := range []string{"12345678", "69900001", "P1234"} {
		fields := scenarioFields()
		fields["NPSN"] = npsn
		triples := NewMapper().Map(fields)

		got, ok := NPSNFromSubject(triples[0].Subject)
		require.True(t, ok)
		require.Equal(t, npsn, got)
		for _, predicate := range []string{PredicateSameAs, PredicateSeeAlso} {
			link := find(triples, predicate)
			require.Len(t, link, 1)
			decoded, ok := NPSNFromReference(link[0].Object.Value)
			require.True(t, ok)
			assert.Equal(t, npsn, decoded)
		}
	}
}

func TestMapIsIdempotent(t *testing.T) {
	t.Parallel()

	fields := scenarioFields()
	fields["Alamat"] = "Jl. Sudirman"
	m := NewMapper()
	first := m.Map(fields)
	second := m.Map(fields)
	assert.Equal(t, first, second)
	assert.Equal(t, scenarioFields()["Email"], fields["Email"], "input must not be mutated")
}

func TestCamelize(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Status Sekolah":         "StatusSekolah",
		"  Waktu Penyelenggaraan": "WaktuPenyelenggaraan",
		"KabupatenKota":          "KabupatenKota",
		"desa_kelurahan":         "desaKelurahan",
		"a--b  c":                "aBC",
		"trailing ":              "trailing",
	}
	for in, want := range tests {
		assert.Equal(t, want, Camelize(in), "Camelize(%q)", in)
	}
}

func TestCleanLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "KabupatenKota", CleanLabel("Kabupaten/Kota"))
	assert.Equal(t, "SK Pendirian Tanggal", CleanLabel("SK Pendirian (Tanggal)"))
	assert.Equal(t, "No Telp", CleanLabel("No. Telp"))
}

func TestNPSNDecodingRejectsForeignURIs(t *testing.T) {
	t.Parallel()

	_, ok := NPSNFromReference("http://example.com/?npsn=1")
	assert.False(t, ok)
	_, ok = NPSNFromSubject(NPSNNamespace)
	assert.False(t, ok)
}
