/*
   Copyright @ 2021 bocloud <fushaosong@beyondcent.com>.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/carina-io/sheepdog/utils/log"
)

const vdiSubSystem string = "vdi"

var (
	vdiLabels = []string{"name", "id", "vdi_id", "kind"}
	vdiKinds  = []string{"volume", "snapshot", "clone"}
)

type vdiStatsCollector struct {
	lister VdiLister

	size    typedFactorDesc
	used    typedFactorDesc
	shared  typedFactorDesc
	count   typedFactorDesc
	skipped typedFactorDesc
}

func newVdiStatsCollector(lister VdiLister) *vdiStatsCollector {
	return &vdiStatsCollector{
		lister: lister,
		size: typedFactorDesc{
			desc: prometheus.NewDesc(
				prometheus.BuildFQName(namespace, vdiSubSystem, "size_bytes"),
				"Virtual size of the VDI in bytes.",
				vdiLabels, nil,
			),
			valueType: prometheus.GaugeValue,
		},
		used: typedFactorDesc{
			desc: prometheus.NewDesc(
				prometheus.BuildFQName(namespace, vdiSubSystem, "used_bytes"),
				"Bytes allocated by the VDI itself.",
				vdiLabels, nil,
			),
			valueType: prometheus.GaugeValue,
		},
		shared: typedFactorDesc{
			desc: prometheus.NewDesc(
				prometheus.BuildFQName(namespace, vdiSubSystem, "shared_bytes"),
				"Bytes shared with the parent snapshot.",
				vdiLabels, nil,
			),
			valueType: prometheus.GaugeValue,
		},
		count: typedFactorDesc{
			desc: prometheus.NewDesc(
				prometheus.BuildFQName(namespace, vdiSubSystem, "count"),
				"Number of VDIs by kind.",
				[]string{"kind"}, nil,
			),
			valueType: prometheus.GaugeValue,
		},
		skipped: typedFactorDesc{
			desc: prometheus.NewDesc(
				prometheus.BuildFQName(namespace, vdiSubSystem, "list_skipped_ranges"),
				"Byte ranges of the last vdi listing that did not parse into a record.",
				nil, nil,
			),
			valueType: prometheus.GaugeValue,
		},
	}
}

func (c *vdiStatsCollector) Name() string {
	return "vdi_stats"
}

func (c *vdiStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.size.desc
	ch <- c.used.desc
	ch <- c.shared.desc
	ch <- c.count.desc
	ch <- c.skipped.desc
}

func (c *vdiStatsCollector) Update(ch chan<- prometheus.Metric) error {
	res, err := c.lister.ListVdis()
	if err != nil {
		return err
	}

	counts := map[string]float64{}
	seen := map[[4]string]bool{}
	for _, r := range res.Records {
		kind := r.Kind()
		counts[kind]++

		key := [4]string{r.Name, r.ID, r.VdiID, kind}
		if seen[key] {
			continue
		}
		seen[key] = true

		labels := key[:]
		for _, m := range []struct {
			desc  *typedFactorDesc
			value string
		}{
			{&c.size, r.Size},
			{&c.used, r.Used},
			{&c.shared, r.Shared},
		} {
			v, err := strconv.ParseFloat(m.value, 64)
			if err != nil {
				log.Debugf("vdi %s: not a number %q", r.Name, m.value)
				continue
			}
			ch <- m.desc.mustNewConstMetric(v, labels...)
		}
	}

	for _, kind := range vdiKinds {
		ch <- c.count.mustNewConstMetric(counts[kind], kind)
	}
	ch <- c.skipped.mustNewConstMetric(float64(len(res.Skipped)))

	if len(res.Records) == 0 {
		return ErrNoData
	}
	return nil
}
