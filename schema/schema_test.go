package schema

import (
	"io"
	"strings"
	"testing"

	"github.com/andaru/swecommon/component"
	"github.com/andaru/swecommon/encoding"
	"github.com/andaru/swecommon/swerr"
	"github.com/andaru/swecommon/textenc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const weatherStream = `<?xml version="1.0" encoding="UTF-8"?>
<swe:DataStream xmlns:swe="http://www.opengis.net/swe/2.0" xmlns:xlink="http://www.w3.org/1999/xlink">
  <swe:elementType name="weather">
    <swe:DataRecord>
      <swe:field name="time">
        <swe:Time definition="http://www.opengis.net/def/property/OGC/0/SamplingTime">
          <swe:uom xlink:href="http://www.opengis.net/def/uom/ISO-8601/0/Gregorian"/>
        </swe:Time>
      </swe:field>
      <swe:field name="temp">
        <swe:Quantity dataType="float"><swe:uom code="Cel"/></swe:Quantity>
      </swe:field>
      <swe:field name="n">
        <swe:Count id="N"/>
      </swe:field>
      <swe:field name="gusts">
        <swe:DataArray>
          <swe:elementCount xlink:href="#N"/>
          <swe:elementType name="speed"><swe:Quantity/></swe:elementType>
        </swe:DataArray>
      </swe:field>
      <swe:field name="pos">
        <swe:Vector>
          <swe:coordinate name="lat"><swe:Quantity/></swe:coordinate>
          <swe:coordinate name="lon"><swe:Quantity/></swe:coordinate>
        </swe:Vector>
      </swe:field>
    </swe:DataRecord>
  </swe:elementType>
  <swe:encoding>
    <swe:TextEncoding tokenSeparator=";" blockSeparator="|" decimalSeparator=","/>
  </swe:encoding>
  <swe:values>
    2018-04-01T00:00:00Z;21,5;2;3,5;4;-33,8;151,2|2018-04-01T00:01:00Z;22;0;-33,8;151,2|
  </swe:values>
</swe:DataStream>
`

func newWeather() component.Component {
	n := component.NewScalar("n", component.Int)
	return component.NewRecord("weather",
		component.NewScalar("time", component.String),
		component.NewScalar("temp", component.Float),
		n,
		component.NewArray("gusts", component.NewScalar("speed", component.Double), component.LinkedSize(n)),
		component.NewRecord("pos",
			component.NewScalar("lat", component.Double),
			component.NewScalar("lon", component.Double),
		),
	)
}

func TestParseDataStream(t *testing.T) {
	check := assert.New(t)
	d, err := Parse(strings.NewReader(weatherStream))
	require.NoError(t, err)
	check.Equal("weather", d.Name)
	check.Equal(component.Fingerprint(newWeather()), component.Fingerprint(d.Root))

	enc, ok := d.Encoding.(*encoding.TextEncoding)
	require.True(t, ok, "got encoding %T", d.Encoding)
	check.Equal(&encoding.TextEncoding{
		TokenSeparator:      ";",
		BlockSeparator:      "|",
		DecimalSeparator:    ",",
		CollapseWhiteSpaces: true,
	}, enc)

	r := textenc.NewReader(strings.NewReader(d.Values), enc)
	require.NoError(t, r.SetDataComponents(d.Root))
	b, err := r.Read()
	require.NoError(t, err)
	check.Equal("[2018-04-01T00:00:00Z 21.5 2 3.5 4 -33.8 151.2]", b.String())
	b, err = r.Read()
	require.NoError(t, err)
	check.Equal("[2018-04-01T00:01:00Z 22 0 -33.8 151.2]", b.String())
	_, err = r.Read()
	check.Equal(io.EOF, err)
}

func TestParseComponent(t *testing.T) {
	for _, tc := range []struct {
		name string
		doc  string
		want component.Component
	}{
		{
			name: "bare record",
			doc: `<DataRecord name="r">
			  <field name="ok"><Boolean/></field>
			  <field name="label"><Category/></field>
			  <field name="t"><Time/></field>
			</DataRecord>`,
			want: component.NewRecord("r",
				component.NewScalar("ok", component.Bool),
				component.NewScalar("label", component.String),
				component.NewScalar("t", component.Double),
			),
		},
		{
			name: "fixed and implicit arrays",
			doc: `<DataRecord>
			  <field name="m">
			    <DataArray>
			      <elementCount><Count><value> 3 </value></Count></elementCount>
			      <elementType name="e"><Count dataType="ubyte"/></elementType>
			    </DataArray>
			  </field>
			  <field name="list">
			    <DataArray>
			      <elementCount><Count/></elementCount>
			      <elementType name="s"><Text/></elementType>
			    </DataArray>
			  </field>
			</DataRecord>`,
			want: component.NewRecord("DataRecord",
				component.NewArray("m", component.NewScalar("e", component.UByte), component.FixedSize(3)),
				component.NewArray("list", component.NewScalar("s", component.String), component.ImplicitSize()),
			),
		},
		{
			name: "choice",
			doc: `<DataChoice>
			  <item name="num"><Quantity/></item>
			  <item name="txt"><Text/></item>
			</DataChoice>`,
			want: component.NewChoice("DataChoice",
				component.NewScalar("num", component.Double),
				component.NewScalar("txt", component.String),
			),
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			d, err := Parse(strings.NewReader(tc.doc))
			require.NoError(t, err)
			assert.Equal(t, component.Fingerprint(tc.want), component.Fingerprint(d.Root))
			assert.Nil(t, d.Encoding)
		})
	}
}

func TestParseBinaryEncoding(t *testing.T) {
	d, err := Parse(strings.NewReader(`<DataStream>
	  <elementType name="v"><Count/></elementType>
	  <encoding><BinaryEncoding byteOrder="littleEndian" byteEncoding="base64"/></encoding>
	</DataStream>`))
	require.NoError(t, err)
	assert.Equal(t, &encoding.BinaryEncoding{ByteOrder: encoding.LittleEndian, ByteEncoding: encoding.Base64}, d.Encoding)
	assert.Equal(t, "", d.Values)
}

func TestParseErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		doc  string
		msg  string
	}{
		{
			name: "unsupported element",
			doc:  `<DataRecord><field name="g"><Geometry/></field></DataRecord>`,
			msg:  "unsupported component <Geometry>",
		},
		{
			name: "unnamed field",
			doc:  `<DataRecord><field><Count/></field></DataRecord>`,
			msg:  "has no name attribute",
		},
		{
			name: "duplicate field",
			doc:  `<DataRecord><field name="a"><Count/></field><field name="a"><Text/></field></DataRecord>`,
			msg:  `duplicate field "a"`,
		},
		{
			name: "empty record",
			doc:  `<DataRecord/>`,
			msg:  "has no fields",
		},
		{
			name: "link before target",
			doc: `<DataRecord>
			  <field name="a"><DataArray><elementCount href="#n"/><elementType name="v"><Count/></elementType></DataArray></field>
			  <field name="n"><Count id="n"/></field>
			</DataRecord>`,
			msg: `unknown component "#n"`,
		},
		{
			name: "link to non-integer",
			doc: `<DataRecord>
			  <field name="n"><Quantity id="n"/></field>
			  <field name="a"><DataArray><elementCount href="#n"/><elementType name="v"><Count/></elementType></DataArray></field>
			</DataRecord>`,
			msg: "non-integer",
		},
		{
			name: "negative count",
			doc:  `<DataArray><elementCount><Count><value>-1</value></Count></elementCount><elementType name="v"><Count/></elementType></DataArray>`,
			msg:  "invalid elementCount",
		},
		{
			name: "bad data type",
			doc:  `<DataRecord><field name="a"><Count dataType="int128"/></field></DataRecord>`,
			msg:  "unknown data type",
		},
		{
			name: "identical separators",
			doc: `<DataStream><elementType name="v"><Count/></elementType>
			  <encoding><TextEncoding tokenSeparator="," blockSeparator=","/></encoding></DataStream>`,
			msg: "separator",
		},
		{
			name: "missing element type",
			doc:  `<DataStream/>`,
			msg:  "no elementType",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			check := assert.New(t)
			_, err := Parse(strings.NewReader(tc.doc))
			require.Error(t, err)
			check.True(swerr.IsStructural(err), "want structural error, got %v", err)
			check.Contains(err.Error(), tc.msg)
		})
	}
}

func TestParseMalformedXML(t *testing.T) {
	_, err := Parse(strings.NewReader(`<DataRecord><field></DataRecord>`))
	assert.Error(t, err)
	assert.False(t, swerr.IsStructural(err))
}
